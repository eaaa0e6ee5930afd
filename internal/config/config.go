package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               string
	DatabaseURL        string
	SlackBotToken      string
	SlackAppToken      string
	SlackSigningSecret string
	CRMBaseURL         string
	CRMAPIToken        string

	ReactionToNoteEnabled bool
	CRMFileUploadEnabled  bool
	SlackReuploadEnabled  bool
	SlackReuploadToThread bool
	InviteOnJoinEnabled   bool
	HTTPEventsEnabled     bool

	ReconChannelPattern  string
	AcceptedReactions    []string
	ConfirmationReaction string
	RequiredMemberIDs    []string
	DedupeWindow         time.Duration

	LogLevel    string
	LogFormat   string
	Environment string
}

func Load() *Config {
	return &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken:      os.Getenv("SLACK_APP_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		CRMBaseURL:         getEnvOrDefault("CRM_BASE_URL", "https://api.pipedrive.com"),
		CRMAPIToken:        os.Getenv("CRM_API_TOKEN"),

		ReactionToNoteEnabled: getEnvBool("REACTION_TO_NOTE_ENABLED", true),
		CRMFileUploadEnabled:  getEnvBool("CRM_FILE_UPLOAD_ENABLED", false),
		SlackReuploadEnabled:  getEnvBool("SLACK_REUPLOAD_ENABLED", false),
		SlackReuploadToThread: getEnvBool("SLACK_REUPLOAD_TO_THREAD", true),
		InviteOnJoinEnabled:   getEnvBool("INVITE_ON_JOIN_ENABLED", true),
		HTTPEventsEnabled:     getEnvBool("HTTP_EVENTS_ENABLED", false),

		ReconChannelPattern:  getEnvOrDefault("RECON_CHANNEL_PATTERN", "rcn"),
		AcceptedReactions:    getEnvList("ACCEPTED_REACTIONS", "white_check_mark,heavy_check_mark,ballot_box_with_check"),
		ConfirmationReaction: getEnvOrDefault("CONFIRMATION_REACTION", "card_index"),
		RequiredMemberIDs:    getEnvList("REQUIRED_MEMBER_IDS", ""),
		DedupeWindow:         getEnvDuration("DEDUPE_WINDOW", 5*time.Minute),

		LogLevel:    getEnvOrDefault("LOG_LEVEL", "INFO"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "text"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
	}
}

func (c *Config) Validate() error {
	var problems []string

	if c.SlackBotToken == "" {
		problems = append(problems, "SLACK_BOT_TOKEN is required")
	}
	if c.SlackAppToken == "" && !c.HTTPEventsEnabled {
		problems = append(problems, "SLACK_APP_TOKEN is required unless HTTP_EVENTS_ENABLED=true")
	}
	if c.HTTPEventsEnabled && c.SlackSigningSecret == "" {
		problems = append(problems, "SLACK_SIGNING_SECRET is required when HTTP_EVENTS_ENABLED=true")
	}
	if c.CRMAPIToken == "" {
		problems = append(problems, "CRM_API_TOKEN is required")
	}

	if c.SlackBotToken != "" && !strings.HasPrefix(c.SlackBotToken, "xoxb-") {
		problems = append(problems, "SLACK_BOT_TOKEN must start with 'xoxb-'")
	}
	if c.SlackAppToken != "" && !strings.HasPrefix(c.SlackAppToken, "xapp-") {
		problems = append(problems, "SLACK_APP_TOKEN must start with 'xapp-'")
	}

	if len(c.AcceptedReactions) == 0 {
		problems = append(problems, "ACCEPTED_REACTIONS must list at least one reaction name")
	}
	if c.ReconChannelPattern == "" {
		problems = append(problems, "RECON_CHANNEL_PATTERN must not be empty")
	}
	if c.DedupeWindow <= 0 {
		problems = append(problems, "DEDUPE_WINDOW must be a positive duration")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if !contains(validLogLevels, strings.ToUpper(c.LogLevel)) {
		problems = append(problems, "LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		problems = append(problems, "LOG_FORMAT must be one of: text, json")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Environment) == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvList(key, defaultValue string) []string {
	value := getEnvOrDefault(key, defaultValue)
	if value == "" {
		return nil
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

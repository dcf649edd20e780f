package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	UseMemoryStore bool
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	CORSAllowedOrigins []string
	ChatRateLimit      float64
	ChatRateBurst      int

	// LLM provider: "groq", "gemini", "ollama" or "bedrock"
	LLMProvider         string
	LLMFallbackProvider string
	LLMMaxTokens        int
	LLMTemperature      float64
	GroqAPIKey          string
	GroqModel           string
	GroqBaseURL         string
	GeminiAPIKey        string
	GeminiModel         string
	OllamaBaseURL       string
	OllamaModel         string
	BedrockModelID      string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Email: "smtp", "sendgrid", "ses" or "stub"
	EmailProvider     string
	EmailEnabled      bool
	EmailFromAddress  string
	EmailFromName     string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SendGridAPIKey    string
	NotifyClinicOnNew bool

	KafkaBrokers []string
	KafkaTopic   string

	RemindersEnabled  bool
	ReminderInterval  time.Duration
	ReminderLeadHours int

	Clinic ClinicSettings
}

// ClinicSettings describes the practice the assistant fronts.
type ClinicSettings struct {
	Name           string
	DoctorName     string
	Specialization string
	Location       string
	Phone          string
	Email          string
	Hours          string
	ClosedDays     string
	Timezone       string
	FirstVisitFee  string
	FollowUpFee    string
	OnlineFee      string
	Services       []string
	Slots          []string
	BotName        string
	BotPersonality string
	EmergencyLine  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		UseMemoryStore: getEnvAsBool("USE_MEMORY_STORE", false),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		ChatRateLimit:      getEnvAsFloat("CHAT_RATE_LIMIT", 1),
		ChatRateBurst:      getEnvAsInt("CHAT_RATE_BURST", 5),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "groq"))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 512),
		LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.4),
		GroqAPIKey:          getEnv("GROQ_API_KEY", ""),
		GroqModel:           getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqBaseURL:         getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		OllamaModel:         getEnv("OLLAMA_MODEL", "llama3"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		EmailEnabled:      getEnvAsBool("ENABLE_EMAIL_REMINDERS", false),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", ""),
		SMTPHost:          getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:          getEnvAsInt("SMTP_PORT", 465),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		NotifyClinicOnNew: getEnvAsBool("NOTIFY_CLINIC_ON_BOOKING", false),

		KafkaBrokers: getEnvAsList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "appointments.events"),

		RemindersEnabled:  getEnvAsBool("REMINDERS_ENABLED", false),
		ReminderInterval:  getEnvAsDuration("REMINDER_INTERVAL", 15*time.Minute),
		ReminderLeadHours: getEnvAsInt("REMINDER_LEAD_HOURS", 24),

		Clinic: ClinicSettings{
			Name:           getEnv("CLINIC_NAME", "Dr. Priya's Wellness & Diet Clinic"),
			DoctorName:     getEnv("DOCTOR_NAME", "Dr. Priya Sharma"),
			Specialization: getEnv("DOCTOR_SPECIALIZATION", "Nutritionist & Dietician"),
			Location:       getEnv("CLINIC_LOCATION", "45 Green Avenue, Koregaon Park, Pune, Maharashtra"),
			Phone:          getEnv("CLINIC_PHONE", "+91 98765 43210"),
			Email:          getEnv("CLINIC_EMAIL", "drpriya@clinic.com"),
			Hours:          getEnv("CLINIC_HOURS", "Monday to Saturday, 10:00 AM - 7:00 PM"),
			ClosedDays:     getEnv("CLINIC_CLOSED_DAYS", "Sundays and National Holidays"),
			Timezone:       getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
			FirstVisitFee:  getEnv("FIRST_VISIT_FEE", "₹500"),
			FollowUpFee:    getEnv("FOLLOWUP_FEE", "₹300"),
			OnlineFee:      getEnv("ONLINE_FEE", "₹400"),
			Services:       getEnvAsList("CLINIC_SERVICES", defaultServices),
			Slots:          getEnvAsList("APPOINTMENT_SLOTS", defaultSlots),
			BotName:        getEnv("BOT_NAME", "Aria"),
			BotPersonality: getEnv("BOT_PERSONALITY", "warm, professional, empathetic, concise"),
			EmergencyLine:  getEnv("EMERGENCY_LINE", "112"),
		},
	}
}

var defaultServices = []string{
	"Diet Consultation",
	"Weight Loss Program",
	"Weight Gain Program",
	"Diabetes Diet Plan",
	"PCOS / PCOD Diet",
	"Thyroid Diet Plan",
	"Child & Infant Nutrition",
	"Sports Nutrition",
	"Pregnancy Diet",
	"Heart Healthy Diet",
}

var defaultSlots = []string{
	"10:00 AM", "11:00 AM", "12:00 PM",
	"2:00 PM", "3:00 PM", "4:00 PM",
	"5:00 PM", "6:00 PM",
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return out
}

package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port                               string
	APIKey                             string
	AzureOpenAIEndpoint                string
	AzureOpenAIAPIKey                  string
	AzureOpenAIAPIVersion              string
	AzureOpenAIChatDeploymentName      string
	AzureOpenAIEmbeddingDeploymentName string
	PredictorURL                       string
	SalesDataPath                      string
	QdrantURL                          string
	QdrantAPIKey                       string
	Environment                        string
	ConfidenceThreshold                float64
	MaxConversationHistory             int
	MaxRequestLogs                     int
	AdminUsername                      string
	AdminPassword                      string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:                               getEnv("PORT", "8080"),
		APIKey:                             getEnv("API_KEY", ""),
		AzureOpenAIEndpoint:                getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIKey:                  getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIAPIVersion:              getEnv("AZURE_OPENAI_API_VERSION", "2023-12-01-preview"),
		AzureOpenAIChatDeploymentName:      getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME", "gpt-4o-mini"),
		AzureOpenAIEmbeddingDeploymentName: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME", "text-embedding-3-small"),
		PredictorURL:                       getEnv("PREDICTOR_URL", "http://localhost:8501"),
		SalesDataPath:                      getEnv("SALES_DATA_PATH", "data/sales_data_with_mapped_ids_v3.csv"),
		QdrantURL:                          getEnv("QDRANT_URL", ""),
		QdrantAPIKey:                       getEnv("QDRANT_API_KEY", ""),
		Environment:                        getEnv("ENVIRONMENT", "development"),
		ConfidenceThreshold:                getEnvFloat("CONFIDENCE_THRESHOLD", 0.5),
		MaxConversationHistory:             getEnvInt("MAX_CONVERSATION_HISTORY", 50),
		MaxRequestLogs:                     getEnvInt("MAX_REQUEST_LOGS", 10000),
		AdminUsername:                      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:                      getEnv("ADMIN_PASSWORD", ""),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

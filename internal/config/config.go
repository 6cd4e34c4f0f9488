package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Document store
	AWSRegion      string
	DynamoEndpoint string // set for DynamoDB Local; empty in production
	TableName      string

	// Blob store
	Bucket         string
	BlobPublicBase string

	// Identity provider tokens
	JWTSecret string
	JWTIssuer string

	TemplatesDir string
	LogFile      string // optional extra log sink
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:           getenv("PORT", "8080"),
		AWSRegion:      getenv("AWS_REGION", "us-east-1"),
		DynamoEndpoint: os.Getenv("DYNAMO_ENDPOINT"),
		TableName:      getenv("TABLE_NAME", "tillbox"),
		Bucket:         getenv("BLOB_BUCKET", "tillbox-media"),
		BlobPublicBase: getenv("BLOB_PUBLIC_BASE", "https://tillbox-media.s3.us-east-1.amazonaws.com"),
		JWTSecret:      getenv("JWT_SECRET", "dev-secret"),
		JWTIssuer:      os.Getenv("JWT_ISSUER"),
		TemplatesDir:   getenv("TEMPLATES_DIR", "./web/templates"),
		LogFile:        os.Getenv("LOG_FILE"),
	}
	log.Printf("[config] PORT=%s TABLE_NAME=%s BLOB_BUCKET=%s", cfg.Port, cfg.TableName, cfg.Bucket)
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

package env

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load loads environment variables from the given .env files, or ./.env when none is given.
// Variables that are already set in the process environment win.
func Load(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Printf("No .env file found, using process environment")
	}
}

// RequiredStringVariable returns the value of an environment variable or panics if not set.
func RequiredStringVariable(name string) string {
	value := os.Getenv(name)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", name))
	}
	return value
}

// StringVariable returns the value of an environment variable or defaultValue.
func StringVariable(name string, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

// ListVariable splits a comma separated variable, dropping blank entries.
func ListVariable(name string, defaultValue []string) []string {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	result := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// IntVariable parses an integer variable. A malformed value panics, an unset one yields defaultValue.
func IntVariable(name string, defaultValue int) int {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s must be an integer, got: %s", name, value))
	}
	return intValue
}

// DurationVariable parses a time.ParseDuration value such as "8s" or "500ms".
func DurationVariable(name string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("environment variable %s must be a duration, got: %s", name, value))
	}
	return duration
}

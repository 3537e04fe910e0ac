package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables for the session parameters.
const (
	EnvJWTToken      = "JWT_TOKEN"
	EnvMeetingNumber = "MEETING_NUMBER"
	EnvMeetingPass   = "MEETING_PASSWORD"
	EnvBotName       = "BOT_NAME"
	EnvBackendURL    = "BACKEND_URL"
	DefaultBotName   = "Tech Bot"
)

// Session holds the per-meeting parameters sourced from the environment.
// One session per process invocation.
type Session struct {
	JWTToken      string
	MeetingNumber string
	Password      string
	BotName       string
	BackendURL    string
}

// LoadSession reads session parameters from the environment. A .env file in
// the working directory is merged in first when present, real environment
// variables win over file values.
func LoadSession() (*Session, error) {
	// Ignore a missing .env, it only exists for local runs
	_ = godotenv.Load()

	session := &Session{
		JWTToken:      os.Getenv(EnvJWTToken),
		MeetingNumber: os.Getenv(EnvMeetingNumber),
		Password:      os.Getenv(EnvMeetingPass),
		BotName:       os.Getenv(EnvBotName),
		BackendURL:    os.Getenv(EnvBackendURL),
	}

	if session.BotName == "" {
		session.BotName = DefaultBotName
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate checks that the required session parameters are present.
func (s *Session) Validate() error {
	if s.JWTToken == "" {
		return fmt.Errorf("required environment variable %s is not set", EnvJWTToken)
	}

	if s.MeetingNumber == "" {
		return fmt.Errorf("required environment variable %s is not set", EnvMeetingNumber)
	}

	return nil
}

// Sanitized returns a copy safe for the monitoring API, with the credential
// masked.
func (s *Session) Sanitized() map[string]string {
	token := ""
	if s.JWTToken != "" {
		token = "***"
	}
	return map[string]string{
		"jwt_token":      token,
		"meeting_number": s.MeetingNumber,
		"bot_name":       s.BotName,
		"backend_url":    s.BackendURL,
	}
}

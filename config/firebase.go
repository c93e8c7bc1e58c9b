package config

import (
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirebaseAppConfig builds the firebase app config from AppConfig.
// A nil config lets the SDK fall back to FIREBASE_CONFIG / ADC.
func FirebaseAppConfig() *firebase.Config {
	if AppConfig.FirebaseProjectID == "" {
		return nil
	}
	return &firebase.Config{ProjectID: AppConfig.FirebaseProjectID}
}

// FirebaseClientOptions returns credentials options for the firebase SDK.
func FirebaseClientOptions() []option.ClientOption {
	if AppConfig.FirebaseCredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(AppConfig.FirebaseCredentialsFile)}
}

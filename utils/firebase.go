// utils/firebase.go
package utils

import (
	"context"
	"fmt"
	"sync"

	"salonbook/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

var (
	firebaseApp     *firebase.App
	firebaseAppErr  error
	firebaseAppOnce sync.Once
)

// FirebaseApp initializes the Firebase App once and returns it.
func FirebaseApp(ctx context.Context) (*firebase.App, error) {
	firebaseAppOnce.Do(func() {
		firebaseApp, firebaseAppErr = firebase.NewApp(ctx, config.FirebaseAppConfig(), config.FirebaseClientOptions()...)
		if firebaseAppErr != nil {
			firebaseAppErr = fmt.Errorf("firebase: error initializing app: %w", firebaseAppErr)
		}
	})
	return firebaseApp, firebaseAppErr
}

// FirebaseMessaging returns an FCM client backed by the shared app.
func FirebaseMessaging(ctx context.Context) (*messaging.Client, error) {
	app, err := FirebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}
	return client, nil
}

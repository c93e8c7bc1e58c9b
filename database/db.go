package database

import (
	"context"
	"fmt"
	"log"

	"salonbook/config"
	"salonbook/database/docstore"
	"salonbook/database/docstore/firestorestore"
	"salonbook/database/docstore/memstore"
	"salonbook/database/docstore/mongostore"
	"salonbook/utils"
)

// Store is the global document store instance.
var Store docstore.Store

// InitDB opens the document store selected by DOCSTORE_BACKEND.
func InitDB(ctx context.Context) {
	store, err := Open(ctx, config.AppConfig.DocstoreBackend)
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}
	Store = store
	log.Printf("Connected to %s document store successfully!", config.AppConfig.DocstoreBackend)
}

// Open builds a store for the given backend name.
func Open(ctx context.Context, backend string) (docstore.Store, error) {
	switch backend {
	case "", "mongo":
		store, err := mongostore.Connect(ctx, config.AppConfig.DatabaseURL, config.AppConfig.DatabaseName)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "firestore":
		app, err := utils.FirebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		return firestorestore.FromApp(ctx, app)
	case "memory":
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown DOCSTORE_BACKEND %q", backend)
}

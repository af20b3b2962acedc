// logiflow-admin agrupa las tareas de mantenimiento que corren fuera del
// servidor: crear el usuario administrador y sembrar Firestore.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/andrescris/logiflow/pkg/logger"
	"github.com/andrescris/logiflow/pkg/store"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type firebaseFlags struct {
	projectID       string
	credentialsPath string
}

func newRootCmd() *cobra.Command {
	fb := &firebaseFlags{}
	root := &cobra.Command{
		Use:           "logiflow-admin",
		Short:         "Tareas de mantenimiento de LogiFlow",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&fb.projectID, "project", os.Getenv("FIREBASE_PROJECT_ID"), "Firebase project ID (FIREBASE_PROJECT_ID)")
	root.PersistentFlags().StringVar(&fb.credentialsPath, "credentials", os.Getenv("FIREBASE_CREDENTIALS_PATH"), "service account JSON (FIREBASE_CREDENTIALS_PATH)")

	root.AddCommand(newInitAdminCmd(fb), newSeedCmd(fb))
	return root
}

// connect abre Firebase con los flags globales.
func (f *firebaseFlags) connect(ctx context.Context) (*firebaseClients, error) {
	if f.projectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID (or --project) is required")
	}
	if err := logger.Init(logger.DefaultConfig()); err != nil {
		return nil, err
	}
	app, err := store.NewFirebaseApp(ctx, f.projectID, f.credentialsPath)
	if err != nil {
		return nil, err
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("auth client: %w", err)
	}
	return &firebaseClients{db: store.NewFirestore(fs), auth: authClient}, nil
}

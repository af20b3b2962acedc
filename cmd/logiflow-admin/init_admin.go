package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/andrescris/logiflow/pkg/logger"
	"github.com/andrescris/logiflow/pkg/models"
	"github.com/andrescris/logiflow/pkg/store"
)

// adminAuth es la parte de *auth.Client que usa init-admin-user.
type adminAuth interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
}

type firebaseClients struct {
	db   *store.Firestore
	auth adminAuth
}

type adminUser struct {
	Email    string
	Password string
	Name     string
}

// AdminProfile es el documento users/{uid}.
type AdminProfile struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Nombre    string    `json:"nombre"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newInitAdminCmd(fb *firebaseFlags) *cobra.Command {
	u := adminUser{}
	cmd := &cobra.Command{
		Use:   "init-admin-user",
		Short: "Crea o actualiza el usuario administrador",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			clients, err := fb.connect(ctx)
			if err != nil {
				return err
			}
			defer clients.db.Close()

			uid, err := initAdminUser(ctx, clients.auth, clients.db, u, logger.GetLogger("admin"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin user ready: %s (%s)\n", u.Email, uid)
			return nil
		},
	}
	cmd.Flags().StringVar(&u.Email, "email", os.Getenv("ADMIN_EMAIL"), "admin email (ADMIN_EMAIL)")
	cmd.Flags().StringVar(&u.Password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password (ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&u.Name, "name", envOr("ADMIN_NAME", "Administrador"), "display name (ADMIN_NAME)")
	return cmd
}

// initAdminUser es idempotente: si el usuario existe solo se actualiza la
// contraseña (si vino), el claim y el perfil.
func initAdminUser(ctx context.Context, client adminAuth, db store.Store, u adminUser, log *logrus.Logger) (string, error) {
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		return "", fmt.Errorf("%w: ADMIN_EMAIL (or --email) is required", models.ErrValidation)
	}

	var uid string
	existing, err := client.GetUserByEmail(ctx, u.Email)
	switch {
	case err == nil:
		uid = existing.UID
		if u.Password != "" {
			if _, err := client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Password(u.Password).DisplayName(u.Name)); err != nil {
				return "", fmt.Errorf("update admin user: %w", err)
			}
		}
		log.WithField("uid", uid).Info("admin user already exists")
	case auth.IsUserNotFound(err):
		if len(u.Password) < 6 {
			return "", fmt.Errorf("%w: ADMIN_PASSWORD must have at least 6 characters", models.ErrValidation)
		}
		created, err := client.CreateUser(ctx, (&auth.UserToCreate{}).
			Email(u.Email).
			Password(u.Password).
			DisplayName(u.Name).
			EmailVerified(true))
		if err != nil {
			return "", fmt.Errorf("create admin user: %w", err)
		}
		uid = created.UID
		log.WithField("uid", uid).Info("admin user created")
	default:
		return "", fmt.Errorf("lookup admin user: %w", err)
	}

	if err := client.SetCustomUserClaims(ctx, uid, map[string]interface{}{"role": "admin"}); err != nil {
		return "", fmt.Errorf("set admin claims: %w", err)
	}

	profile, err := store.ToDocument(AdminProfile{
		UID:       uid,
		Email:     u.Email,
		Nombre:    u.Name,
		Role:      "admin",
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	if err := db.SetMerge(ctx, models.CollectionUsers, uid, profile); err != nil {
		return "", fmt.Errorf("write admin profile: %w", err)
	}
	return uid, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/mycelium-backend/internal/app"
	"github.com/yungbote/mycelium-backend/internal/realtime"
	"github.com/yungbote/mycelium-backend/internal/services"
)

var (
	migrateOnStart   bool
	reconcileDeck    string
	reconcileWorkers int
	tokenUser        string
	tokenTTL         time.Duration

	rootCmd = &cobra.Command{
		Use:           "mycelium",
		Short:         "Mycelium pitch deck backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Repair research sessions and research cards from accepted results",
		RunE:  runReconcile,
	}

	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Print research progression events from the event bus until interrupted",
		RunE:  runEvents,
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user id (local development)",
		RunE:  runToken,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&migrateOnStart, "migrate", true, "run migrations before serving")
	reconcileCmd.Flags().StringVar(&reconcileDeck, "deck", "", "only reconcile this deck id")
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "concurrency", 4, "decks reconciled in parallel")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (a new one is generated when empty)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL)")

	rootCmd.AddCommand(serveCmd, migrateCmd, reconcileCmd, eventsCmd, tokenCmd)
}

// withApp builds the app, runs fn and always closes it.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, log)
	if err != nil {
		log.Sync()
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn("Shutdown incomplete", "error", err)
		}
	}()
	return fn(a)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		if migrateOnStart {
			if err := a.Migrate(); err != nil {
				return err
			}
		}
		return a.Serve(cmd.Context())
	})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app.App) error {
		if err := a.Migrate(); err != nil {
			return err
		}
		a.Log.Info("Migrations complete")
		return nil
	})
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	opts := services.ReconcileOptions{Concurrency: reconcileWorkers}
	if reconcileDeck != "" {
		id, err := uuid.Parse(reconcileDeck)
		if err != nil {
			return fmt.Errorf("--deck: %w", err)
		}
		opts.DeckID = id
	}
	return withApp(cmd.Context(), func(a *app.App) error {
		sum, err := a.Services.Reconcile.Run(cmd.Context(), opts)
		fmt.Fprintf(cmd.OutOrStdout(), "visited=%d repaired=%d unchanged=%d failed=%d\n",
			sum.Visited, sum.Repaired, sum.Unchanged, sum.Failed)
		return err
	})
}

func runToken(cmd *cobra.Command, _ []string) error {
	userID := uuid.New()
	if tokenUser != "" {
		id, err := uuid.Parse(tokenUser)
		if err != nil {
			return fmt.Errorf("--user: %w", err)
		}
		userID = id
	}
	return withApp(cmd.Context(), func(a *app.App) error {
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = a.Cfg.AccessTokenTTL
		}
		tok, err := a.Services.Auth.IssueAccessToken(userID, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user_id=%s\n%s\n", userID, tok)
		return nil
	})
}

func runEvents(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		err := a.Clients.EventBus.StartForwarder(ctx, func(ev realtime.Event) {
			_ = enc.Encode(ev)
		})
		if err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"boardsync/domain"
	"boardsync/storage"
)

// seedFile is the optional bootstrap payload: the organizations and accounts
// that must exist before anyone can sign in.
type seedFile struct {
	Organizations []domain.Organization `json:"organizations"`
	Users         []domain.User         `json:"users"`
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("provision starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tableName := os.Getenv("ENTITIES_TABLE")
	if connStr == "" || tableName == "" {
		log.Fatal("missing storage config")
	}

	store, err := storage.New(connStr, tableName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	ctx := context.Background()
	if err := store.EnsureTable(ctx); err != nil {
		log.Fatalf("ensure table: %v", err)
	}

	if path := os.Getenv("SEED_FILE"); path != "" {
		if err := seed(ctx, store, path); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	log.Info("provision complete")
}

func seed(ctx context.Context, store *storage.Storage, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var sf seedFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return err
	}
	for _, o := range sf.Organizations {
		if err := store.UpsertOrganization(ctx, o); err != nil {
			return err
		}
		log.WithField("org", o.ID).Debug("seeded organization")
	}
	for _, u := range sf.Users {
		if !u.Role.Valid() {
			log.WithField("user", u.ID).Warnf("skipping user with unknown role %q", u.Role)
			continue
		}
		if err := store.UpsertUser(ctx, u); err != nil {
			return err
		}
		log.WithField("user", u.ID).Debug("seeded user")
	}
	log.Infof("seeded %d organizations, %d users", len(sf.Organizations), len(sf.Users))
	return nil
}

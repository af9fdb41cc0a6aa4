package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dukerupert/hearthboard/internal/store"
)

// bootstrap creates a family and its organizer, linked to an identity-provider
// account, so the first member can sign in.
//
//	hearthboard bootstrap -family "The Rivers" -organizer "Dana" -auth-user "idp|123"
func bootstrap(ctx context.Context, db *sql.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	fs.SetOutput(out)
	familyName := fs.String("family", "", "family name")
	organizer := fs.String("organizer", "", "organizer's display name")
	authUser := fs.String("auth-user", "", "identity-provider subject of the organizer")
	timezone := fs.String("timezone", "", "IANA timezone for the family day (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	*familyName = strings.TrimSpace(*familyName)
	*organizer = strings.TrimSpace(*organizer)
	*authUser = strings.TrimSpace(*authUser)
	if *familyName == "" || *organizer == "" || *authUser == "" {
		fs.Usage()
		return errors.New("-family, -organizer and -auth-user are required")
	}
	if *timezone != "" {
		if _, err := time.LoadLocation(*timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	members := store.NewFamilyMemberStore(db)
	existing, err := members.GetByAuthUserID(ctx, *authUser)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("account %s is already linked to member %d of family %d", *authUser, existing.ID, existing.FamilyID)
	}

	family, m, err := store.NewFamilyStore(db).CreateWithOrganizer(ctx, *familyName, *timezone, *organizer, *authUser)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created family %d (%s) with organizer %d (%s)\n", family.ID, family.Name, m.ID, m.Name)
	return nil
}

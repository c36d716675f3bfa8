package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	aaadomain "github.com/smallbiznis/netbill/internal/aaa/domain"
	invoicedomain "github.com/smallbiznis/netbill/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	reminderdomain "github.com/smallbiznis/netbill/internal/reminder/domain"
	schedulerdomain "github.com/smallbiznis/netbill/internal/scheduler/domain"
	subscriberdomain "github.com/smallbiznis/netbill/internal/subscriber/domain"
	voucherdomain "github.com/smallbiznis/netbill/internal/voucher/domain"
	"gorm.io/gorm"
)

// Models lists every table the engine reads or writes, in dependency order.
func Models() []any {
	return []any{
		&aaadomain.NAS{},
		&aaadomain.RadCheck{},
		&aaadomain.RadReply{},
		&aaadomain.RadUserGroup{},
		&aaadomain.RadAcct{},
		&voucherdomain.Profile{},
		&voucherdomain.Agent{},
		&voucherdomain.Voucher{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.AgentSaleRecord{},
		&subscriberdomain.Subscriber{},
		&invoicedomain.Invoice{},
		&reminderdomain.Settings{},
		&schedulerdomain.RunRecord{},
	}
}

// Migrate brings the schema up to date. Postgres gets the versioned SQL
// migrations; mysql and sqlite are development targets and are auto-migrated
// from the models.
func Migrate(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	switch dbType {
	case "postgres":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	case "mysql", "sqlite":
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s type", dbType)
	}
}

// RunMigrations applies all embedded postgres migrations and verifies the
// schema ends at the latest embedded version.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	latestVersion, err := LatestMigrationVersion()
	if err != nil {
		return err
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if _, err := ensureNotDirty(migrator); err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	currentVersion, err := ensureNotDirty(migrator)
	if err != nil {
		return err
	}
	if currentVersion != latestVersion {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", currentVersion, latestVersion)
	}
	return nil
}

func ensureNotDirty(migrator *migrate.Migrate) (uint, error) {
	if migrator == nil {
		return 0, errors.New("migrator is required")
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}

//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"oact/internal/evidence/store"
	"oact/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	storeContract
	postgres *containers.PostgresContainer
	db       *sql.DB
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	db, err := sql.Open("postgres", s.postgres.DSN)
	s.Require().NoError(err)
	s.db = db

	pg := store.NewPostgresStore(db)
	s.Require().NoError(pg.Migrate(context.Background()))
	s.store = pg
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	s.postgres.Exec(s.T(), "TRUNCATE evidence_bundles")
}

func (s *PostgresStoreSuite) TestDenormalisedColumns() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, newBundle(7, 0.95)))

	var (
		tier     string
		high     bool
		affected int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tier, is_high_priority, affected_count FROM evidence_bundles WHERE id = $1`, "bundle-007",
	).Scan(&tier, &high, &affected)
	s.Require().NoError(err)
	s.Equal("No-Go", tier)
	s.True(high)
	s.Equal(1, affected)
}

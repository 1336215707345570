package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-event-api/pkg/config"
)

func TestDSNQuotesAndAppliesTimeout(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:           "db",
		Port:           5432,
		User:           "events",
		Password:       "it's secret",
		Name:           "campus_events",
		SSLMode:        "disable",
		ConnectTimeout: 3 * time.Second,
	})
	assert.Contains(t, dsn, `password='it\'s secret'`)
	assert.Contains(t, dsn, "connect_timeout=3")
	assert.Contains(t, dsn, "application_name=campus-event-api")

	fallback := DSN(config.DatabaseConfig{Host: "db", Port: 5432})
	assert.Contains(t, fallback, "connect_timeout=5")
	assert.Contains(t, fallback, "password=''")
}

func TestPrepareAppliesPoolLimitsAndMigrates(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectPing()
	for range schema {
		mock.ExpectExec(regexp.QuoteMeta("CREATE")).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	db := sqlx.NewDb(raw, "postgres")
	err = Prepare(context.Background(), db, config.DatabaseConfig{
		MaxOpenConns:    7,
		ConnMaxLifetime: time.Minute,
		AutoMigrate:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepareSkipsSchemaWhenPingFails(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = Prepare(context.Background(), sqlx.NewDb(raw, "postgres"), config.DatabaseConfig{Host: "db", Port: 5432, Name: "campus_events", AutoMigrate: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping postgres db:5432/campus_events")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrepareWithoutAutoMigrateOnlyPings(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectPing()

	require.NoError(t, Prepare(context.Background(), sqlx.NewDb(raw, "postgres"), config.DatabaseConfig{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

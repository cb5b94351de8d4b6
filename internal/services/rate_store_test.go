// internal/services/rate_store_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/gemstore-backend/internal/models"
)

type RateStoreTestSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	store *GormRateStore
}

func (s *RateStoreTestSuite) SetupTest() {
	db, mock := newMockDB(s.T())
	s.mock = mock
	s.store = NewGormRateStore(db)
}

func (s *RateStoreTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *RateStoreTestSuite) TestLatestReturnsNewestRow() {
	fetchedAt := time.Now().Add(-time.Hour)
	s.mock.ExpectQuery(`SELECT \* FROM "exchange_rates" WHERE .*base = \$1 AND quote = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "base", "quote", "rate", "source", "fetched_at"}).
			AddRow(uuid.New().String(), "USD", "EUR", "0.91", "test", fetchedAt))

	rate, err := s.store.Latest(context.Background(), "USD", "EUR")
	s.Require().NoError(err)
	s.Require().NotNil(rate)
	s.Equal("0.91", rate.Rate.String())
	s.Equal("test", rate.Source)
}

func (s *RateStoreTestSuite) TestLatestMissingPair() {
	s.mock.ExpectQuery(`SELECT \* FROM "exchange_rates"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rate, err := s.store.Latest(context.Background(), "USD", "CHF")
	s.NoError(err)
	s.Nil(rate)
}

func (s *RateStoreTestSuite) TestSaveEmptyIsNoop() {
	s.NoError(s.store.Save(context.Background(), nil))
}

func (s *RateStoreTestSuite) TestSaveUpsertsOnPair() {
	now := time.Now()
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO "exchange_rates" .* ON CONFLICT \("base","quote"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow(uuid.New().String()).
			AddRow(uuid.New().String()))
	s.mock.ExpectCommit()

	err := s.store.Save(context.Background(), []models.ExchangeRate{
		{Base: "USD", Quote: "EUR", Rate: dec("0.9"), Source: "test", FetchedAt: now},
		{Base: "USD", Quote: "GBP", Rate: dec("0.8"), Source: "test", FetchedAt: now},
	})
	s.NoError(err)
}

func TestRateStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RateStoreTestSuite))
}

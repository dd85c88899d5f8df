package backend

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/snarg/cel-engine/internal/cel"
	"github.com/snarg/cel-engine/internal/metrics"
)

const celSchema = `
CREATE TABLE IF NOT EXISTS cel (
	id          BIGSERIAL PRIMARY KEY,
	eventtype   TEXT NOT NULL,
	eventtime   TIMESTAMPTZ NOT NULL,
	userdeftype TEXT NOT NULL DEFAULT '',
	cid_name    TEXT NOT NULL DEFAULT '',
	cid_num     TEXT NOT NULL DEFAULT '',
	cid_ani     TEXT NOT NULL DEFAULT '',
	cid_rdnis   TEXT NOT NULL DEFAULT '',
	cid_dnid    TEXT NOT NULL DEFAULT '',
	exten       TEXT NOT NULL DEFAULT '',
	context     TEXT NOT NULL DEFAULT '',
	channame    TEXT NOT NULL DEFAULT '',
	appname     TEXT NOT NULL DEFAULT '',
	appdata     TEXT NOT NULL DEFAULT '',
	amaflags    INTEGER NOT NULL DEFAULT 0,
	accountcode TEXT NOT NULL DEFAULT '',
	peeraccount TEXT NOT NULL DEFAULT '',
	uniqueid    TEXT NOT NULL DEFAULT '',
	linkedid    TEXT NOT NULL DEFAULT '',
	userfield   TEXT NOT NULL DEFAULT '',
	peer        TEXT NOT NULL DEFAULT '',
	extra       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS cel_linkedid_idx ON cel (linkedid);
CREATE INDEX IF NOT EXISTS cel_eventtime_idx ON cel (eventtime);
`

const celInsert = `
INSERT INTO cel (
	eventtype, eventtime, userdeftype,
	cid_name, cid_num, cid_ani, cid_rdnis, cid_dnid,
	exten, context, channame, appname, appdata,
	amaflags, accountcode, peeraccount, uniqueid, linkedid,
	userfield, peer, extra
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`

// Postgres writes records to a cel table in insert batches.
type Postgres struct {
	pool  *pgxpool.Pool
	batch *batcher[*cel.Record]
	log   zerolog.Logger
}

// NewPostgres connects, creates the cel table if needed, and starts the batch
// writer.
func NewPostgres(ctx context.Context, databaseURL string, log zerolog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, celSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create cel table: %w", err)
	}

	p := &Postgres{
		pool: pool,
		log:  log.With().Str("component", "pg_backend").Logger(),
	}
	p.batch = newBatcher(100, 2*time.Second, p.flush)

	p.log.Info().
		Str("url", maskDSN(databaseURL)).
		Int32("max_conns", cfg.MaxConns).
		Msg("postgres backend connected")

	return p, nil
}

// Write queues one record for the next insert batch. When the queue is full
// the record is dropped so the fan-out path never blocks on the database.
func (p *Postgres) Write(rec *cel.Record) {
	if !p.batch.Add(rec) {
		metrics.BackendErrorsTotal.WithLabelValues("postgres").Inc()
		p.log.Warn().Str("event", rec.EventName).Msg("insert queue full, dropping record")
	}
}

// Close flushes pending records and releases the pool.
func (p *Postgres) Close() {
	p.batch.Stop()
	p.log.Info().Msg("closing postgres backend")
	p.pool.Close()
}

func (p *Postgres) flush(recs []*cel.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var batch pgx.Batch
	for _, rec := range recs {
		batch.Queue(celInsert,
			rec.EventName, rec.Time(), rec.UserDefinedName,
			rec.CallerIDName, rec.CallerIDNumber, rec.CallerIDANI, rec.CallerIDRDNIS, rec.CallerIDDNID,
			rec.Extension, rec.Context, rec.ChannelName, rec.ApplicationName, rec.ApplicationData,
			rec.AMAFlags, rec.AccountCode, rec.PeerAccount, rec.UniqueID, rec.LinkedID,
			rec.UserField, rec.Peer, rec.Extra,
		)
	}

	if err := p.pool.SendBatch(ctx, &batch).Close(); err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("postgres").Inc()
		p.log.Error().Err(err).Int("records", len(recs)).Msg("insert batch failed")
		return
	}

	p.log.Debug().Int("records", len(recs)).Msg("insert batch written")
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}

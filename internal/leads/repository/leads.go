package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, user_id, source_url, status, verify_email_status,
	scrap_info, enrich_info, verify_email_info, claimed_at, created_at, updated_at`

// CreateLeadParams is a scraper deposit.
type CreateLeadParams struct {
	UserID    uuid.UUID
	SourceURL string
	Status    domain.Status
	ScrapInfo json.RawMessage
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	status := params.Status
	if status == "" {
		status = domain.StatusScraped
	}
	if !status.Valid() || (status != domain.StatusPending && !status.IsEligible()) {
		return domain.Lead{}, fmt.Errorf("create lead: unsupported initial status %q", status)
	}

	scrap := params.ScrapInfo
	if len(scrap) == 0 {
		scrap = json.RawMessage(`{}`)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (id, user_id, source_url, status, verify_email_status, scrap_info)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING `+leadColumns,
		uuid.New(), params.UserID, params.SourceURL, string(status), []byte(scrap))

	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// ListUsersWithScrapedLeads returns every user with at least one claimable lead.
func (r *Repository) ListUsersWithScrapedLeads(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT user_id
		FROM leads
		WHERE status = 'scraped'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

// ClaimNextScraped atomically moves the user's oldest scraped lead to enriching.
// SKIP LOCKED lets a concurrent tick pass over a row being claimed, and the
// outer status guard turns a lost race into zero rows instead of a double claim.
func (r *Repository) ClaimNextScraped(ctx context.Context, userID uuid.UUID) (domain.Lead, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'enriching', claimed_at = now(), updated_at = now()
		WHERE id = (
			SELECT id FROM leads
			WHERE user_id = $1 AND status = 'scraped'
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		AND status = 'scraped'
		RETURNING `+leadColumns, userID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, false, nil
	}
	if err != nil {
		return domain.Lead{}, false, err
	}
	return lead, true, nil
}

func (r *Repository) MarkEnriched(ctx context.Context, leadID uuid.UUID, info domain.EnrichInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return r.finishClaim(ctx, leadID, domain.StatusEnriched, payload)
}

// ReleaseForRetry returns a claimed lead to scraped with enrich_info cleared.
func (r *Repository) ReleaseForRetry(ctx context.Context, leadID uuid.UUID) error {
	return r.finishClaim(ctx, leadID, domain.StatusScraped, nil)
}

// finishClaim moves an enriching lead to its terminal state for this claim.
// A nil enrichInfo stores NULL.
func (r *Repository) finishClaim(ctx context.Context, leadID uuid.UUID, to domain.Status, enrichInfo []byte) error {
	if !domain.CanTransition(domain.StatusEnriching, to) {
		return fmt.Errorf("lead %s: illegal transition %s -> %s", leadID, domain.StatusEnriching, to)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $2, enrich_info = $3, claimed_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'enriching'
	`, leadID, string(to), enrichInfo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrClaimLost
	}
	return nil
}

func (r *Repository) SaveVerification(ctx context.Context, leadID uuid.UUID, status domain.VerifyEmailStatus, info json.RawMessage) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET verify_email_status = $2, verify_email_info = $3, updated_at = now()
		WHERE id = $1
	`, leadID, string(status), []byte(info))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueStale releases enriching leads claimed before claimedBefore.
func (r *Repository) RequeueStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = 'scraped', enrich_info = NULL, claimed_at = NULL, updated_at = now()
		WHERE status = 'enriching' AND claimed_at < $1
	`, claimedBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountStale counts enriching leads claimed before claimedBefore without touching them.
func (r *Repository) CountStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM leads
		WHERE status = 'enriching' AND claimed_at < $1
	`, claimedBefore).Scan(&n)
	return n, err
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead         domain.Lead
		status       string
		verifyStatus string
		scrapRaw     []byte
		enrichRaw    []byte
		verifyRaw    []byte
	)
	if err := row.Scan(
		&lead.ID, &lead.UserID, &lead.SourceURL, &status, &verifyStatus,
		&scrapRaw, &enrichRaw, &verifyRaw, &lead.ClaimedAt, &lead.CreatedAt, &lead.UpdatedAt,
	); err != nil {
		return domain.Lead{}, err
	}

	lead.Status = domain.Status(status)
	if !lead.Status.Valid() {
		return domain.Lead{}, fmt.Errorf("lead %s: unknown status %q", lead.ID, status)
	}
	lead.VerifyEmailStatus = domain.VerifyEmailStatus(verifyStatus)

	scrap, err := domain.ParseScrapInfo(scrapRaw)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("lead %s: %w", lead.ID, err)
	}
	lead.ScrapInfo = scrap

	if len(enrichRaw) > 0 && string(enrichRaw) != "null" {
		var info domain.EnrichInfo
		if err := json.Unmarshal(enrichRaw, &info); err != nil {
			return domain.Lead{}, fmt.Errorf("lead %s enrich_info: %w", lead.ID, err)
		}
		lead.EnrichInfo = &info
	}
	if len(verifyRaw) > 0 {
		lead.VerifyEmailInfo = json.RawMessage(verifyRaw)
	}

	return lead, nil
}

var (
	_ ports.LeadStore       = (*Repository)(nil)
	_ ports.StaleClaimStore = (*Repository)(nil)
)

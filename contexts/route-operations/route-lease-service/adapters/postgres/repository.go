package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"routeops/contexts/route-operations/route-lease-service/domain/entities"
	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
)

// Repository persists leases, outbox rows, deliveries and route memberships with gorm.
// It runs unchanged on PostgreSQL, SQL Server and SQLite.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates every table the repository owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&leaseModel{},
		&outboxModel{},
		&deliveryModel{},
		&membershipModel{},
	)
}

func (r *Repository) GetLease(ctx context.Context, key valueobjects.LeaseKey) (entities.RouteLease, bool, error) {
	var row leaseModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND day = ? AND route = ?", key.TenantID, key.Day, key.Route).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RouteLease{}, false, nil
		}
		return entities.RouteLease{}, false, err
	}
	lease, err := row.toEntity()
	if err != nil {
		return entities.RouteLease{}, false, err
	}
	return lease, true, nil
}

func (r *Repository) SaveLeaseWithOutbox(
	ctx context.Context,
	lease entities.RouteLease,
	expectedVersion int64,
	event ports.LeaseEvent,
) (entities.RouteLease, error) {
	if err := lease.CheckInvariant(); err != nil {
		return entities.RouteLease{}, err
	}
	envelope, err := event.Envelope()
	if err != nil {
		return entities.RouteLease{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return entities.RouteLease{}, err
	}

	saved := lease.Clone()
	saved.Version = expectedVersion + 1
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = event.OccurredAt.UTC()
	}
	row, err := leaseModelFromEntity(saved)
	if err != nil {
		return entities.RouteLease{}, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if expectedVersion == 0 {
			if err := tx.Create(&row).Error; err != nil {
				if isUniqueViolation(err) {
					return domainerrors.ErrLeaseVersionConflict
				}
				return err
			}
		} else {
			result := tx.Model(&leaseModel{}).
				Where("tenant_id = ? AND day = ? AND route = ? AND version = ?",
					row.TenantID, row.Day, row.Route, expectedVersion).
				Updates(map[string]any{
					"holder_id":       row.HolderID,
					"holder_name":     row.HolderName,
					"last_heartbeat":  row.LastHeartbeat,
					"status":          row.Status,
					"history":         row.History,
					"version":         row.Version,
					"override_by":     row.OverrideBy,
					"override_reason": row.OverrideReason,
					"overridden_at":   row.OverriddenAt,
					"updated_at":      row.UpdatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domainerrors.ErrLeaseVersionConflict
			}
		}

		outboxRow := outboxModel{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			Status:       outboxStatusPending,
			CreatedAt:    event.OccurredAt.UTC(),
		}
		if err := tx.Create(&outboxRow).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariantBroke
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrLeaseVersionConflict) {
			r.logger.Debug("lease write lost compare-and-set",
				"event", "route_lease_repository_version_conflict",
				"module", "route-operations/route-lease-service",
				"layer", "adapter",
				"route", lease.Route,
				"expected_version", expectedVersion,
			)
		}
		return entities.RouteLease{}, err
	}
	return saved, nil
}

func (r *Repository) ListLeasesForDay(ctx context.Context, tenantID string, day string) ([]entities.RouteLease, error) {
	return r.findLeases(ctx, r.db.WithContext(ctx).
		Where("tenant_id = ? AND day = ?", tenantID, day).
		Order("route ASC"))
}

func (r *Repository) ListLeasesHeldBy(
	ctx context.Context,
	tenantID string,
	day string,
	holderID string,
) ([]entities.RouteLease, error) {
	return r.findLeases(ctx, r.db.WithContext(ctx).
		Where("tenant_id = ? AND day = ? AND holder_id = ? AND status = ?",
			tenantID, day, holderID, string(entities.LeaseStatusHeld)).
		Order("route ASC"))
}

func (r *Repository) ListLeasesByStatus(
	ctx context.Context,
	status entities.LeaseStatus,
	days []string,
	limit int,
) ([]entities.RouteLease, error) {
	if len(days) == 0 {
		return []entities.RouteLease{}, nil
	}
	tx := r.db.WithContext(ctx).
		Where("status = ? AND day IN ?", string(status), days).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "tenant_id"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "day"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "route"}})
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	return r.findLeases(ctx, tx)
}

// TouchHeldLeases is a single conditional update, so a heartbeat racing a
// release or takeover can never revive a lease the agent no longer holds.
func (r *Repository) TouchHeldLeases(
	ctx context.Context,
	tenantID string,
	day string,
	holderID string,
	at time.Time,
) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&leaseModel{}).
		Where("tenant_id = ? AND day = ? AND holder_id = ? AND status = ?",
			tenantID, day, holderID, string(entities.LeaseStatusHeld)).
		Updates(map[string]any{
			"last_heartbeat": at.UTC(),
			"updated_at":     at.UTC(),
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) CountUnresolved(ctx context.Context, scope ports.DeliveryScope) (int, error) {
	if len(scope.CustomerIDs) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.deliveriesInScope(ctx, scope).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// AssignUnresolved never matches rows already held by holderID, so the returned
// count is the number of rows that changed hands.
func (r *Repository) AssignUnresolved(
	ctx context.Context,
	scope ports.DeliveryScope,
	match ports.HolderMatch,
	holderID string,
) (int, error) {
	if len(scope.CustomerIDs) == 0 {
		return 0, nil
	}
	others := make([]string, 0, len(match.HolderIDs))
	for _, id := range match.HolderIDs {
		if id != "" && id != holderID {
			others = append(others, id)
		}
	}

	tx := r.deliveriesInScope(ctx, scope)
	switch {
	case match.Unassigned && len(others) > 0:
		tx = tx.Where("(holder_id IS NULL OR holder_id IN ?)", others)
	case match.Unassigned:
		tx = tx.Where("holder_id IS NULL")
	case len(others) > 0:
		tx = tx.Where("holder_id IN ?", others)
	default:
		return 0, nil
	}

	result := tx.Updates(map[string]any{
		"holder_id":  holderID,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) ClearUnresolvedHolder(ctx context.Context, scope ports.DeliveryScope, holderID string) (int, error) {
	if len(scope.CustomerIDs) == 0 || holderID == "" {
		return 0, nil
	}
	result := r.deliveriesInScope(ctx, scope).
		Where("holder_id = ?", holderID).
		Updates(map[string]any{
			"holder_id":  nil,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) ListRoutes(ctx context.Context, tenantID string) ([]string, error) {
	var routes []string
	if err := r.db.WithContext(ctx).
		Model(&membershipModel{}).
		Where("tenant_id = ?", tenantID).
		Distinct("route_key").
		Order("route_key ASC").
		Pluck("route_key", &routes).
		Error; err != nil {
		return nil, err
	}
	return routes, nil
}

func (r *Repository) ResolveCustomers(ctx context.Context, tenantID string, route string) ([]string, error) {
	var customers []string
	if err := r.db.WithContext(ctx).
		Model(&membershipModel{}).
		Where("tenant_id = ? AND route_key = ?", tenantID, valueobjects.NormalizeRoute(route)).
		Order("customer_id ASC").
		Pluck("customer_id", &customers).
		Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// UpsertMembership moves a customer onto a route, replacing any previous route.
func (r *Repository) UpsertMembership(ctx context.Context, member entities.RouteMembership) error {
	row := membershipModel{
		TenantID:   strings.TrimSpace(member.TenantID),
		CustomerID: strings.TrimSpace(member.CustomerID),
		Route:      member.Route,
		RouteKey:   valueobjects.NormalizeRoute(member.Route),
	}
	if row.TenantID == "" || row.CustomerID == "" || row.RouteKey == "" {
		return domainerrors.ErrInvalidLeaseRequest
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"route", "route_key"}),
		}).
		Create(&row).
		Error
}

// UpsertDeliveries writes delivery rows as the delivery store would. Used by
// local seeding and tests; the lease service itself only rewrites holders.
func (r *Repository) UpsertDeliveries(ctx context.Context, records ...entities.DeliveryRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]deliveryModel, 0, len(records))
	now := time.Now().UTC()
	for _, record := range records {
		rows = append(rows, deliveryModel{
			DeliveryID:   record.DeliveryID,
			TenantID:     record.TenantID,
			CustomerID:   record.CustomerID,
			ScheduledFor: record.ScheduledFor.UTC(),
			HolderID:     nullableString(record.HolderID),
			Resolved:     record.Resolved,
			UpdatedAt:    now,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "delivery_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"holder_id", "resolved", "scheduled_for", "updated_at"}),
		}).
		Create(&rows).
		Error
}

func (r *Repository) ListDeliveries(ctx context.Context, tenantID string) ([]entities.DeliveryRecord, error) {
	var rows []deliveryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("delivery_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.DeliveryRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("outbox_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r *Repository) findLeases(_ context.Context, tx *gorm.DB) ([]entities.RouteLease, error) {
	var rows []leaseModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.RouteLease, 0, len(rows))
	for _, row := range rows {
		lease, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, lease)
	}
	return items, nil
}

func (r *Repository) deliveriesInScope(ctx context.Context, scope ports.DeliveryScope) *gorm.DB {
	customers := append([]string(nil), scope.CustomerIDs...)
	sort.Strings(customers)
	return r.db.WithContext(ctx).
		Model(&deliveryModel{}).
		Where("tenant_id = ? AND customer_id IN ? AND scheduled_for >= ? AND scheduled_for < ? AND resolved = ?",
			scope.TenantID, customers, scope.From.UTC(), scope.To.UTC(), false)
}

type leaseModel struct {
	LeaseID        string     `gorm:"column:lease_id;primaryKey"`
	TenantID       string     `gorm:"column:tenant_id;size:64;not null;uniqueIndex:ux_route_leases_key,priority:1"`
	Day            string     `gorm:"column:day;size:10;not null;uniqueIndex:ux_route_leases_key,priority:2;index:ix_route_leases_status_day,priority:2"`
	Route          string     `gorm:"column:route;size:191;not null;uniqueIndex:ux_route_leases_key,priority:3"`
	HolderID       *string    `gorm:"column:holder_id;size:64"`
	HolderName     string     `gorm:"column:holder_name"`
	LastHeartbeat  *time.Time `gorm:"column:last_heartbeat"`
	Status         string     `gorm:"column:status;size:16;not null;index:ix_route_leases_status_day,priority:1"`
	History        string     `gorm:"column:history;type:text"`
	Version        int64      `gorm:"column:version;not null"`
	OverrideBy     string     `gorm:"column:override_by"`
	OverrideReason string     `gorm:"column:override_reason"`
	OverriddenAt   *time.Time `gorm:"column:overridden_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (leaseModel) TableName() string {
	return "route_leases"
}

func leaseModelFromEntity(lease entities.RouteLease) (leaseModel, error) {
	history := lease.History
	if history == nil {
		history = []entities.HolderInterval{}
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return leaseModel{}, fmt.Errorf("encode lease history: %w", err)
	}
	return leaseModel{
		LeaseID:        lease.LeaseID,
		TenantID:       lease.TenantID,
		Day:            lease.Day,
		Route:          lease.Route,
		HolderID:       nullableString(lease.HolderID),
		HolderName:     lease.HolderName,
		LastHeartbeat:  utcPtr(lease.LastHeartbeat),
		Status:         string(lease.Status),
		History:        string(encoded),
		Version:        lease.Version,
		OverrideBy:     lease.OverrideBy,
		OverrideReason: lease.OverrideReason,
		OverriddenAt:   utcPtr(lease.OverriddenAt),
		CreatedAt:      lease.CreatedAt.UTC(),
		UpdatedAt:      lease.UpdatedAt.UTC(),
	}, nil
}

func (m leaseModel) toEntity() (entities.RouteLease, error) {
	history := []entities.HolderInterval{}
	if strings.TrimSpace(m.History) != "" {
		if err := json.Unmarshal([]byte(m.History), &history); err != nil {
			return entities.RouteLease{}, fmt.Errorf("decode lease history: %w", err)
		}
	}
	for i := range history {
		history[i].Start = history[i].Start.UTC()
		history[i].End = utcPtr(history[i].End)
	}
	holderID := ""
	if m.HolderID != nil {
		holderID = *m.HolderID
	}
	return entities.RouteLease{
		LeaseID:        m.LeaseID,
		TenantID:       m.TenantID,
		Day:            m.Day,
		Route:          m.Route,
		HolderID:       holderID,
		HolderName:     m.HolderName,
		LastHeartbeat:  utcPtr(m.LastHeartbeat),
		Status:         entities.LeaseStatus(m.Status),
		History:        history,
		Version:        m.Version,
		OverrideBy:     m.OverrideBy,
		OverrideReason: m.OverrideReason,
		OverriddenAt:   utcPtr(m.OverriddenAt),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}, nil
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "route_lease_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type deliveryModel struct {
	DeliveryID   string    `gorm:"column:delivery_id;primaryKey"`
	TenantID     string    `gorm:"column:tenant_id;size:64;not null;index:ix_deliveries_scope,priority:1"`
	CustomerID   string    `gorm:"column:customer_id;size:64;not null;index:ix_deliveries_scope,priority:2"`
	ScheduledFor time.Time `gorm:"column:scheduled_for;not null;index:ix_deliveries_scope,priority:3"`
	HolderID     *string   `gorm:"column:holder_id;size:64"`
	Resolved     bool      `gorm:"column:resolved;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (deliveryModel) TableName() string {
	return "deliveries"
}

func (m deliveryModel) toEntity() entities.DeliveryRecord {
	holderID := ""
	if m.HolderID != nil {
		holderID = *m.HolderID
	}
	return entities.DeliveryRecord{
		DeliveryID:   m.DeliveryID,
		TenantID:     m.TenantID,
		CustomerID:   m.CustomerID,
		ScheduledFor: m.ScheduledFor.UTC(),
		HolderID:     holderID,
		Resolved:     m.Resolved,
	}
}

type membershipModel struct {
	TenantID   string `gorm:"column:tenant_id;size:64;primaryKey"`
	CustomerID string `gorm:"column:customer_id;size:64;primaryKey"`
	Route      string `gorm:"column:route"`
	RouteKey   string `gorm:"column:route_key;size:191;index"`
}

func (membershipModel) TableName() string {
	return "route_memberships"
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	at := value.UTC()
	return &at
}

// isUniqueViolation recognises duplicate-key failures from every supported driver,
// with or without gorm error translation enabled.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) && (msErr.Number == 2627 || msErr.Number == 2601) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

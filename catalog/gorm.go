package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/mailgun/holster/v4/clock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open conecta e migra o schema. Em sqlite a conexão é única: ":memory:"
// só é compartilhado dentro da mesma conexão, e o arquivo aceita um escritor
// por vez de qualquer forma.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&User{}, &Paper{}, &LibraryItem{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate schema: %w", err)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type GormRepository struct {
	db *gorm.DB
}

var _ Repository = &GormRepository{}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}

func (r *GormRepository) SearchPapers(ctx context.Context, q SearchQuery) (SearchResult, error) {
	q, err := q.Normalize()
	if err != nil {
		return SearchResult{}, err
	}

	tx := r.db.WithContext(ctx).Model(&Paper{})
	if q.Q != "" {
		p := likePattern(q.Q)
		tx = tx.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(abstract) LIKE ? ESCAPE '\' OR LOWER(keywords) LIKE ? ESCAPE '\')`, p, p, p)
	}
	if q.Author != "" {
		tx = tx.Where(`LOWER(authors) LIKE ? ESCAPE '\'`, likePattern(q.Author))
	}
	if q.YearFrom != 0 {
		tx = tx.Where("year >= ?", q.YearFrom)
	}
	if q.YearTo != 0 {
		tx = tx.Where("year <= ?", q.YearTo)
	}
	if q.OpenAccess != nil {
		tx = tx.Where("open_access = ?", *q.OpenAccess)
	}
	for _, kw := range q.Keywords {
		tx = tx.Where(`LOWER(keywords) LIKE ? ESCAPE '\'`, likePattern(kw))
	}

	tx = tx.Session(&gorm.Session{})

	var res SearchResult
	if err := tx.Count(&res.Total).Error; err != nil {
		return SearchResult{}, fmt.Errorf("count papers: %w", err)
	}

	order := "citation_count DESC"
	if q.SortBy == SortDate {
		order = "year DESC"
	}
	if err := tx.Order(order).Order("id ASC").Offset((q.Page - 1) * q.Limit).Limit(q.Limit).Find(&res.Papers).Error; err != nil {
		return SearchResult{}, fmt.Errorf("search papers: %w", err)
	}
	return res, nil
}

func (r *GormRepository) GetPaper(ctx context.Context, id string) (*Paper, error) {
	var p Paper
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaperNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get paper %s: %w", id, err)
	}
	return &p, nil
}

func (r *GormRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *GormRepository) ListLibrary(ctx context.Context, userID uint) ([]LibraryItem, error) {
	var items []LibraryItem
	err := r.db.WithContext(ctx).
		Preload("Paper").
		Where("user_id = ?", userID).
		Order("saved_at DESC").Order("id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	return items, nil
}

// SaveToLibrary grava ou atualiza (tags, notas) o item do usuário.
func (r *GormRepository) SaveToLibrary(ctx context.Context, userID uint, paperID string, tags []string, notes string) (*LibraryItem, error) {
	if _, err := r.GetPaper(ctx, paperID); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}

	item := LibraryItem{
		UserID:  userID,
		PaperID: paperID,
		Tags:    tags,
		Notes:   notes,
		SavedAt: clock.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "paper_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tags", "notes", "saved_at"}),
	}).Create(&item).Error
	if err != nil {
		return nil, fmt.Errorf("save library item: %w", err)
	}

	var saved LibraryItem
	err = r.db.WithContext(ctx).Preload("Paper").
		Where("user_id = ? AND paper_id = ?", userID, paperID).
		First(&saved).Error
	if err != nil {
		return nil, fmt.Errorf("reload library item: %w", err)
	}
	return &saved, nil
}

func (r *GormRepository) RemoveFromLibrary(ctx context.Context, userID uint, paperID string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND paper_id = ?", userID, paperID).
		Delete(&LibraryItem{})
	if res.Error != nil {
		return fmt.Errorf("remove library item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLibraryItemNotFound
	}
	return nil
}

func (r *GormRepository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := r.db.WithContext(ctx)
	if err := db.Model(&Paper{}).Count(&c.Papers).Error; err != nil {
		return Counts{}, fmt.Errorf("count papers: %w", err)
	}
	if err := db.Model(&User{}).Count(&c.Users).Error; err != nil {
		return Counts{}, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&LibraryItem{}).Count(&c.LibraryItems).Error; err != nil {
		return Counts{}, fmt.Errorf("count library items: %w", err)
	}
	return c, nil
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/trilu/lupito-catalog/internal/domain"
)

// allowedUpdateColumns whitelists the enrichable catalog columns a partial
// update may touch. Identity columns (key, slugs) are never updatable.
var allowedUpdateColumns = map[string]bool{
	"ingredients":     true,
	"form":            true,
	"life_stage":      true,
	"kcal_per_100g":   true,
	"protein_percent": true,
	"fat_percent":     true,
	"price_per_kg":    true,
}

const productColumns = `product_key, brand, brand_slug, product_name, name_slug,
	form, life_stage, ingredients, kcal_per_100g, protein_percent, fat_percent,
	price_per_kg, updated_at`

// CatalogStore implements domain.CatalogStore using PostgreSQL.
type CatalogStore struct {
	db *sql.DB
}

// NewCatalogStore creates a new CatalogStore instance.
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open failed: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}
	return db, nil
}

// FetchAll returns every catalog entry ordered by product key.
func (s *CatalogStore) FetchAll(ctx context.Context) ([]domain.CanonicalProduct, error) {
	query := `
		SELECT ` + productColumns + `
		FROM foods_canonical
		ORDER BY product_key ASC;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: FetchAll failed to query catalog: %w", err)
	}
	defer rows.Close()

	var products []domain.CanonicalProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: FetchAll failed to scan row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: FetchAll iteration error: %w", err)
	}

	return products, nil
}

// GetByKey returns a single catalog entry.
func (s *CatalogStore) GetByKey(ctx context.Context, productKey string) (*domain.CanonicalProduct, error) {
	query := `
		SELECT ` + productColumns + `
		FROM foods_canonical
		WHERE product_key = $1;
	`
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, productKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("postgres: GetByKey failed to scan row: %w", err)
	}
	return &p, nil
}

// InsertProduct creates a new catalog entry. A product-key collision maps
// to domain.ErrDuplicateKey; the existing row is never touched.
func (s *CatalogStore) InsertProduct(ctx context.Context, product *domain.CanonicalProduct) error {
	query := `
		INSERT INTO foods_canonical
			(product_key, brand, brand_slug, product_name, name_slug, form, life_stage,
			 ingredients, kcal_per_100g, protein_percent, fat_percent, price_per_kg, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP);
	`
	_, err := s.db.ExecContext(ctx, query,
		product.ProductKey, product.Brand, product.BrandSlug,
		product.ProductName, product.NameSlug,
		string(product.Form), string(product.LifeStage),
		nullString(product.Ingredients),
		nullFloat(product.KcalPer100g), nullFloat(product.ProteinPercent),
		nullFloat(product.FatPercent), nullFloat(product.PricePerKg),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: %s", domain.ErrDuplicateKey, product.ProductKey)
		}
		return fmt.Errorf("postgres: InsertProduct failed: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update keyed by product key. Column names
// outside the enrichment whitelist are rejected; field order in the SET
// clause is sorted so generated SQL is deterministic.
//
// Every column is written through a fill expression, so a populated column
// keeps its value no matter what the payload carries. Payloads are computed
// against a snapshot that can be outdated by the time the write lands
// (another merge in the same batch may have filled the column already), so
// the guard has to live in the statement itself.
func (s *CatalogStore) UpdateFields(ctx context.Context, productKey string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !allowedUpdateColumns[col] {
			return fmt.Errorf("postgres: UpdateFields: column %q is not updatable", col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	setClauses := make([]string, 0, len(columns)+1)
	args := make([]interface{}, 0, len(columns)+1)
	for i, col := range columns {
		setClauses = append(setClauses, fillExpr(col, i+1))
		args = append(args, fields[col])
	}
	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, productKey)

	query := fmt.Sprintf(
		"UPDATE foods_canonical SET %s WHERE product_key = $%d;",
		strings.Join(setClauses, ", "), len(columns)+1,
	)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: UpdateFields failed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: UpdateFields failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productKey)
	}
	return nil
}

// fillExpr builds the SET expression for col. A populated column keeps its
// value: the text column counts '' as empty, the enum columns count '' and
// 'unknown' as empty, the numeric columns count NULL.
func fillExpr(col string, arg int) string {
	switch col {
	case "ingredients":
		return fmt.Sprintf("%s = COALESCE(NULLIF(%s, ''), $%d)", col, col, arg)
	case "form", "life_stage":
		return fmt.Sprintf("%s = COALESCE(NULLIF(NULLIF(%s, ''), 'unknown'), $%d)", col, col, arg)
	default:
		return fmt.Sprintf("%s = COALESCE(%s, $%d)", col, col, arg)
	}
}

// AliasMap loads the brand alias table. Aliases are lowercased on the way
// in so lookups need no further normalization.
func (s *CatalogStore) AliasMap(ctx context.Context) (map[string]string, error) {
	query := `SELECT alias, canonical_brand FROM brand_aliases;`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: AliasMap failed to query aliases: %w", err)
	}
	defer rows.Close()

	aliases := make(map[string]string)
	for rows.Next() {
		var alias, canonical string
		if err := rows.Scan(&alias, &canonical); err != nil {
			return nil, fmt.Errorf("postgres: AliasMap failed to scan row: %w", err)
		}
		aliases[strings.ToLower(alias)] = canonical
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: AliasMap iteration error: %w", err)
	}

	return aliases, nil
}

// Close closes the underlying connection pool.
func (s *CatalogStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		return s.db.Close()
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row scanner) (domain.CanonicalProduct, error) {
	var (
		p           domain.CanonicalProduct
		form        string
		lifeStage   string
		ingredients sql.NullString
		kcal        sql.NullFloat64
		protein     sql.NullFloat64
		fat         sql.NullFloat64
		price       sql.NullFloat64
		updatedAt   sql.NullTime
	)

	err := row.Scan(
		&p.ProductKey, &p.Brand, &p.BrandSlug, &p.ProductName, &p.NameSlug,
		&form, &lifeStage, &ingredients, &kcal, &protein, &fat, &price, &updatedAt,
	)
	if err != nil {
		return domain.CanonicalProduct{}, err
	}

	p.Form = domain.ParseForm(form)
	p.LifeStage = domain.ParseLifeStage(lifeStage)
	if ingredients.Valid {
		p.Ingredients = ingredients.String
	}
	p.KcalPer100g = floatPtr(kcal)
	p.ProteinPercent = floatPtr(protein)
	p.FatPercent = floatPtr(fat)
	p.PricePerKg = floatPtr(price)
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}

	return p, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

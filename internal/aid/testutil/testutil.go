package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/marcdm/DrimsNewBuildv2/internal/aid/entity"
	"github.com/marcdm/DrimsNewBuildv2/internal/middleware"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema = "test_aid"
	JWTSecret  = "drims-jwt-secret-key-test"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB creates a test database connection using a dedicated test
// schema. Each test gets an isolated schema that is dropped on cleanup.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "drims")
	password := getEnv("DB_PASSWORD", "drims")
	dbname := getEnv("DB_NAME", "drims")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// search_path in the DSN so all pooled connections land in the test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&entity.Agency{},
		&entity.Warehouse{},
		&entity.Item{},
		&entity.Inventory{},
		&entity.ReliefRequest{},
		&entity.ReliefRequestItem{},
		&entity.ReliefPackage{},
		&entity.ReliefPackageItem{},
		&entity.FulfillmentLock{},
		&entity.ActivityLog{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name, email string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": roles,
		"iss":   "drims",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default admin test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Admin", "admin@test.com", []string{"admin"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedAgency creates a requesting agency
func SeedAgency(t *testing.T, db *gorm.DB, id, name string) *entity.Agency {
	t.Helper()
	a := &entity.Agency{
		ID:         id,
		Name:       name,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		VersionNbr: 1,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("Failed to seed agency: %v", err)
	}
	return a
}

// SeedWarehouse creates an active warehouse
func SeedWarehouse(t *testing.T, db *gorm.DB, id, code string) *entity.Warehouse {
	t.Helper()
	w := &entity.Warehouse{
		ID:         id,
		Code:       code,
		Name:       "Warehouse " + code,
		Status:     entity.WarehouseStatusActive,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		VersionNbr: 1,
	}
	if err := db.Create(w).Error; err != nil {
		t.Fatalf("Failed to seed warehouse: %v", err)
	}
	return w
}

// SeedItem creates a relief item
func SeedItem(t *testing.T, db *gorm.DB, id, sku string) *entity.Item {
	t.Helper()
	item := &entity.Item{
		ID:         id,
		SKUCode:    sku,
		Name:       "Item " + sku,
		UomCode:    "pcs",
		Status:     entity.ItemActive,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		VersionNbr: 1,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to seed item: %v", err)
	}
	return item
}

// SeedBatch creates one inventory batch with the given usable quantity.
func SeedBatch(t *testing.T, db *gorm.DB, id, warehouseID, itemID, batchNo string, usable int64, expiry *time.Time) *entity.Inventory {
	t.Helper()
	inv := &entity.Inventory{
		ID:          id,
		WarehouseID: warehouseID,
		ItemID:      itemID,
		BatchNo:     batchNo,
		UsableQty:   decimal.NewFromInt(usable),
		UomCode:     "pcs",
		ExpiryDate:  expiry,
		ReceivedAt:  time.Now(),
		Status:      entity.InventoryStatusActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		VersionNbr:  1,
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("Failed to seed inventory batch: %v", err)
	}
	return inv
}

// SeedRequest creates a relief request with one line per item quantity.
func SeedRequest(t *testing.T, db *gorm.DB, id, agencyID string, lines map[string]int64) *entity.ReliefRequest {
	t.Helper()
	req := &entity.ReliefRequest{
		ID:          id,
		AgencyID:    agencyID,
		RequestDate: time.Now(),
		UrgencyInd:  entity.UrgencyNormal,
		Status:      entity.RequestStatusAwaitingFulfillment,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		VersionNbr:  1,
	}
	n := 0
	for itemID, qty := range lines {
		n++
		req.Items = append(req.Items, entity.ReliefRequestItem{
			ID:              fmt.Sprintf("%s-line-%d", id, n),
			ReliefRequestID: id,
			ItemID:          itemID,
			RequestQty:      decimal.NewFromInt(qty),
			UrgencyInd:      entity.UrgencyNormal,
			Status:          entity.ItemStatusPending,
			VersionNbr:      1,
		})
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatalf("Failed to seed relief request: %v", err)
	}
	return req
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evade6ix/ctfinal-sub000/internal/adapter/storage"
	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
	"github.com/evade6ix/ctfinal-sub000/internal/core/service"
)

const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/fulfillment?parseTime=true"
	redisAddr     = "localhost:6379"
	itemID        = "stress-item"
	binID         = "stress-bin"
	initialStock  = 20
	totalRequests = 50
)

// stubMarketplace satisfies the marketplace contract without a live API:
// every order carries a single one-unit line of the stress item.
type stubMarketplace struct{}

func (stubMarketplace) FetchEligibleOrders(ctx context.Context, states []string) ([]domain.Order, error) {
	return nil, nil
}

func (stubMarketplace) FetchOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	return []domain.OrderLine{{ProductID: itemID, Name: "Stress Item", Quantity: 1}}, nil
}

func main() {
	ctx := context.Background()

	// Initialize MySQL
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	cleanup(ctx, db, rdb)

	// Initialize adapters and service
	stockRepo := storage.NewMySQLStockRepository(db)
	allocRepo := storage.NewMySQLAllocationRepository(db)
	cache := storage.NewRedisAdapter(rdb, time.Minute)

	if err := stockRepo.UpsertItem(ctx, domain.StockItem{ID: itemID, Name: "Stress Item"}); err != nil {
		log.Fatalf("failed to create item: %v", err)
	}
	if err := stockRepo.AddStock(ctx, itemID, binID, 1, initialStock); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	allocService := service.NewAllocationService(stockRepo, allocRepo, stubMarketplace{}, cache, zap.NewNop())

	// Counters
	var fulfilledCount atomic.Int32
	var shortCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests, one order per goroutine
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			rec, err := allocService.AllocateOrderLine(ctx, fmt.Sprintf("stress-order-%d", n), itemID, 1)
			switch {
			case err != nil:
				if !errors.Is(err, domain.ErrConflict) {
					log.Printf("order %d: %v", n, err)
				}
				failCount.Add(1)
			case rec.Fulfilled == 1:
				fulfilledCount.Add(1)
			default:
				shortCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	fulfilled := fulfilledCount.Load()
	short := shortCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Fulfilled:        %d\n", fulfilled)
	fmt.Printf("Short:            %d\n", short)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Conservation: every fulfilled unit left the ledger, nothing else did
	item, err := stockRepo.GetItem(ctx, itemID)
	if err != nil || item == nil {
		log.Fatalf("failed to read back item: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", item.TotalQuantity)

	if int(fulfilled)+item.TotalQuantity == initialStock {
		fmt.Println("PASS: fulfilled units + remaining stock == initial stock")
	} else {
		fmt.Printf("FAIL: fulfilled %d + remaining %d != initial %d\n",
			fulfilled, item.TotalQuantity, initialStock)
	}

	if fulfilled <= int32(initialStock) {
		fmt.Println("PASS: no oversell")
	} else {
		fmt.Printf("FAIL: oversold, %d fulfilled from stock of %d\n", fulfilled, initialStock)
	}
}

func cleanup(ctx context.Context, db *sql.DB, rdb *redis.Client) {
	db.ExecContext(ctx, `DELETE al FROM allocation_locations al
		JOIN allocations a ON a.id = al.allocation_id
		WHERE a.order_id LIKE 'stress-order-%'`)
	db.ExecContext(ctx, `DELETE FROM allocations WHERE order_id LIKE 'stress-order-%'`)
	db.ExecContext(ctx, `DELETE FROM stock_locations WHERE item_id = ?`, itemID)
	db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = ?`, itemID)

	keys, _ := rdb.Keys(ctx, "orderlock:stress-order-*").Result()
	for _, k := range keys {
		rdb.Del(ctx, k)
	}
}

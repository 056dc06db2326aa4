package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evade6ix/ctfinal-sub000/internal/core/domain"
	"github.com/evade6ix/ctfinal-sub000/internal/port"
)

// IntakeRequest is one unit of stock intake: item metadata plus where the
// units were physically shelved.
type IntakeRequest struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	SetName    string `json:"set_name"`
	Condition  string `json:"condition"`
	Foil       bool   `json:"foil"`
	PriceCents int64  `json:"price_cents"`
	BinID      string `json:"bin_id"`
	Row        int    `json:"row"`
	Quantity   int    `json:"quantity"`
}

// StockService fronts the stock ledger for the manual endpoints: intake,
// location corrections, and bin management.
type StockService struct {
	stock  port.StockRepository
	logger *zap.Logger
}

func NewStockService(stock port.StockRepository, logger *zap.Logger) *StockService {
	return &StockService{stock: stock, logger: logger}
}

// AddStock registers the item on first sight and shelves the units.
func (s *StockService) AddStock(ctx context.Context, req IntakeRequest) error {
	if req.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if strings.TrimSpace(req.ItemID) == "" || strings.TrimSpace(req.BinID) == "" {
		return fmt.Errorf("item_id and bin_id are required")
	}

	if err := s.stock.UpsertItem(ctx, domain.StockItem{
		ID:         req.ItemID,
		Name:       req.Name,
		SetName:    req.SetName,
		Condition:  req.Condition,
		Foil:       req.Foil,
		PriceCents: req.PriceCents,
	}); err != nil {
		return err
	}

	if err := s.stock.AddStock(ctx, req.ItemID, req.BinID, req.Row, req.Quantity); err != nil {
		return err
	}

	s.logger.Info("stock intake",
		zap.String("item_id", req.ItemID),
		zap.String("bin_id", req.BinID),
		zap.Int("row", req.Row),
		zap.Int("quantity", req.Quantity))
	return nil
}

// RemoveLocation drops a location and recomputes the item total. Manual
// correction, not a reservation.
func (s *StockService) RemoveLocation(ctx context.Context, itemID, binID string, row int) error {
	if err := s.stock.RemoveLocation(ctx, itemID, binID, row); err != nil {
		return err
	}
	s.logger.Info("removed stock location",
		zap.String("item_id", itemID),
		zap.String("bin_id", binID),
		zap.Int("row", row))
	return nil
}

func (s *StockService) GetItem(ctx context.Context, itemID string) (*domain.StockItem, error) {
	return s.stock.GetItem(ctx, itemID)
}

func (s *StockService) CreateBin(ctx context.Context, name string, rowCount int) (*domain.Bin, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("bin name is required")
	}
	if rowCount <= 0 {
		return nil, fmt.Errorf("bin row count must be positive")
	}

	bin := domain.Bin{ID: uuid.NewString(), Name: name, RowCount: rowCount}
	if err := s.stock.CreateBin(ctx, bin); err != nil {
		return nil, err
	}
	s.logger.Info("created bin", zap.String("bin_id", bin.ID), zap.String("name", name))
	return &bin, nil
}

func (s *StockService) ListBins(ctx context.Context) ([]domain.Bin, error) {
	return s.stock.ListBins(ctx)
}

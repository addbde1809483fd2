package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/KotFed0t/portfolio_dashboard/utils"
	"github.com/xuri/excelize/v2"
)

const (
	positionsSheet    = "Positions"
	transactionsSheet = "Transactions"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, portfolio model.EnrichedPortfolio) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillPositionsSheet(f, portfolio); err != nil {
		slog.Error("can't fill positions sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillTransactionsSheet(f, portfolio.Transactions); err != nil {
		slog.Error("can't fill transactions sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
}

func (g *XLSXGenerator) fillPositionsSheet(f *excelize.File, portfolio model.EnrichedPortfolio) error {
	_, err := f.NewSheet(positionsSheet)
	if err != nil {
		return err
	}

	styleID, err := g.headerStyle(f)
	if err != nil {
		return err
	}

	headers := []string{"Symbol", "Quantity", "Avg price", "Price", "Market cap", "P/E", "Value"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(positionsSheet, cell, header)
		if err := f.SetCellStyle(positionsSheet, cell, cell, styleID); err != nil {
			return err
		}
	}

	row := 2
	for _, pos := range portfolio.PositionsArray {
		qty, _ := pos.Quantity.Float64()
		avg, _ := pos.AvgPrice.Float64()
		price, _ := pos.Price.Float64()
		value, _ := pos.Value.Float64()

		f.SetCellValue(positionsSheet, fmt.Sprintf("A%d", row), pos.Symbol)
		f.SetCellValue(positionsSheet, fmt.Sprintf("B%d", row), qty)
		f.SetCellValue(positionsSheet, fmt.Sprintf("C%d", row), avg)
		f.SetCellValue(positionsSheet, fmt.Sprintf("D%d", row), price)
		if pos.MarketCap != nil {
			f.SetCellValue(positionsSheet, fmt.Sprintf("E%d", row), *pos.MarketCap)
		}
		if pos.PER != nil {
			f.SetCellValue(positionsSheet, fmt.Sprintf("F%d", row), *pos.PER)
		}
		f.SetCellValue(positionsSheet, fmt.Sprintf("G%d", row), value)
		row++
	}

	row++
	cash, _ := portfolio.Cash.Float64()
	total, _ := portfolio.TotalValue.Float64()
	f.SetCellValue(positionsSheet, fmt.Sprintf("A%d", row), "Cash")
	f.SetCellValue(positionsSheet, fmt.Sprintf("G%d", row), cash)
	row++
	f.SetCellValue(positionsSheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(positionsSheet, fmt.Sprintf("G%d", row), total)

	return nil
}

func (g *XLSXGenerator) fillTransactionsSheet(f *excelize.File, transactions []model.Transaction) error {
	_, err := f.NewSheet(transactionsSheet)
	if err != nil {
		return err
	}

	styleID, err := g.headerStyle(f)
	if err != nil {
		return err
	}

	headers := []string{"Timestamp", "Symbol", "Quantity", "Price", "Total", "Rationale"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(transactionsSheet, cell, header)
		if err := f.SetCellStyle(transactionsSheet, cell, cell, styleID); err != nil {
			return err
		}
	}

	for i, tx := range transactions {
		row := i + 2
		qty, _ := tx.Quantity.Float64()
		price, _ := tx.Price.Float64()
		total, _ := tx.Total.Float64()

		f.SetCellValue(transactionsSheet, fmt.Sprintf("A%d", row), tx.Timestamp)
		f.SetCellValue(transactionsSheet, fmt.Sprintf("B%d", row), tx.Symbol)
		f.SetCellValue(transactionsSheet, fmt.Sprintf("C%d", row), qty)
		f.SetCellValue(transactionsSheet, fmt.Sprintf("D%d", row), price)
		f.SetCellValue(transactionsSheet, fmt.Sprintf("E%d", row), total)
		f.SetCellValue(transactionsSheet, fmt.Sprintf("F%d", row), tx.Rationale)
	}

	return nil
}

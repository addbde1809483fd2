package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/KotFed0t/portfolio_dashboard/config"
	"github.com/KotFed0t/portfolio_dashboard/data/repository"
	"github.com/KotFed0t/portfolio_dashboard/model"
	"github.com/KotFed0t/portfolio_dashboard/utils"
)

// JsonFile reads the portfolio document maintained by the external writer.
// This side never writes the file.
type JsonFile struct {
	path string
}

func New(cfg *config.Config) *JsonFile {
	return &JsonFile{path: cfg.Portfolio.File}
}

func (r *JsonFile) Read(ctx context.Context) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "JsonFile.Read"

	slog.Debug("Read start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", r.path))

	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("portfolio file absent, using default document", slog.String("rqID", rqID), slog.String("op", op))
			return model.DefaultPortfolio(), nil
		}
		slog.Error("can't read portfolio file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, fmt.Errorf("%w: %s", repository.ErrCorrupt, err)
	}

	portfolio := model.DefaultPortfolio()
	if err := json.Unmarshal(raw, &portfolio); err != nil {
		slog.Error("can't unmarshall portfolio file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, fmt.Errorf("%w: %s", repository.ErrCorrupt, err)
	}

	if portfolio.Positions == nil {
		portfolio.Positions = map[string]model.Position{}
	}
	if portfolio.Transactions == nil {
		portfolio.Transactions = []model.Transaction{}
	}

	slog.Debug("Read completed", slog.String("rqID", rqID), slog.String("op", op))

	return portfolio, nil
}

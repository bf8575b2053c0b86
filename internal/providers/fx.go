package providers

import (
	"github.com/smallbiznis/timesheet/internal/providers/pdf"
	"github.com/smallbiznis/timesheet/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
	storage.Module,
)

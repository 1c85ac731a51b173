package pipeline

import "github.com/coylemichael/gpuencode/internal/logging"

var log = logging.L("pipeline")

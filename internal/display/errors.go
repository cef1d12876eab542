package display

import "codeberg.org/mutker/pentactl/internal/errors"

const (
	ErrRenderFailed = errors.ErrorCode("display_render_failed")
	ErrDrawFailed   = errors.ErrorCode("display_draw_failed")
)

package watermark

import "errors"

// ErrRender indicates the merge pipeline could not parse or composite
// a page. The operation is all-or-nothing: no partially watermarked
// document is ever returned.
var ErrRender = errors.New("watermark render failed")

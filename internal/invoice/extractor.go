package invoice

import (
	"context"
	"log/slog"

	"github.com/teemow/invoiceflow/internal/logging"
)

// Instruction is the fixed prompt sent with every inference call.
const Instruction = `Extract all text from this invoice image in a structured way. Include invoice number, date, vendor name, and total amount if available.
Return only valid JSON in this format:
{
"vendor_name": "...",
"invoice_date": "...",
"total_amount": "...",
"invoice_number": "..."
}
If any field is not found, use "N/A" as the value.`

// Inference converts one or more encoded images into a raw text payload,
// expected to be a JSON object matching the record shape.
type Inference interface {
	ExtractFromImages(ctx context.Context, images [][]byte, instruction string) (string, error)
}

// Rasterizer renders each page of a paginated document as a PNG image, in
// page order.
type Rasterizer interface {
	RasterizePages(data []byte) ([][]byte, error)
}

// Extractor turns attachment content into a structured record. Extraction
// failures never propagate; every failure path degrades to the default
// record so the rest of the pipeline can proceed with placeholder data.
type Extractor struct {
	inference Inference
	raster    Rasterizer
	logger    *slog.Logger
}

// NewExtractor creates an extractor with explicit collaborators so tests can
// substitute stubs.
func NewExtractor(inference Inference, raster Rasterizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		inference: inference,
		raster:    raster,
		logger:    logging.WithService(logger, "extractor"),
	}
}

// Extract derives a structured record from attachment content via the route's
// strategy. The returned record always carries all four fields.
func (e *Extractor) Extract(ctx context.Context, content []byte, route Route) Record {
	switch route {
	case RouteImage:
		return e.extractImage(ctx, content)
	case RouteDocument:
		return e.extractDocument(ctx, content)
	case RouteMailContainer:
		return e.extractMailContainer(content)
	default:
		return DefaultRecord()
	}
}

func (e *Extractor) extractImage(ctx context.Context, content []byte) Record {
	text, err := e.inference.ExtractFromImages(ctx, [][]byte{content}, Instruction)
	if err != nil {
		e.logger.Warn("inference call failed", logging.Err(err))
		return DefaultRecord()
	}

	rec, ok := ParseRecord(text)
	if !ok {
		e.logger.Warn("inference returned unparseable payload")
	}
	return rec
}

// extractDocument makes one inference call per page to keep prompt and image
// size bounded, parses each page's response independently and merges the
// results preferring the first usable value per field, in page order.
func (e *Extractor) extractDocument(ctx context.Context, content []byte) Record {
	pages, err := e.raster.RasterizePages(content)
	if err != nil {
		e.logger.Warn("failed to rasterize document", logging.Err(err))
		return DefaultRecord()
	}
	if len(pages) == 0 {
		return DefaultRecord()
	}

	rec := DefaultRecord()
	for i, page := range pages {
		text, err := e.inference.ExtractFromImages(ctx, [][]byte{page}, Instruction)
		if err != nil {
			e.logger.Warn("inference call failed", "page", i+1, logging.Err(err))
			continue
		}

		pageRec, ok := ParseRecord(text)
		if !ok {
			e.logger.Warn("inference returned unparseable payload", "page", i+1)
			continue
		}
		rec = rec.Merge(pageRec)
	}
	return rec
}

// extractMailContainer parses the container's body text directly as a record.
// TODO: route the extracted body text through an inference call once the
// prompt supports raw text input; today only image-derived routes reach the
// model, so a plain-text invoice email rarely yields usable fields.
func (e *Extractor) extractMailContainer(content []byte) Record {
	text := mailContainerText(content)
	rec, _ := ParseRecord(text)
	return rec
}

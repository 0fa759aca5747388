package dicom

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var configValidate = validator.New()

// PipelineConfig configures the ordered stack of transforms Build
// assembles into a single Handler chain, the flow-level counterpart of
// the functional ParserOptions (WithChunkSize, WithStopTag, ...) that
// configure the streaming parser itself.
type PipelineConfig struct {
	Dictionary Dictionary `validate:"required"`

	DropFMI          bool
	DropGroupLengths bool
	Whitelist        PatternSet
	Blacklist        PatternSet

	SplitNativeFrames bool
	DropBulkData      bool

	NormalizeSequenceLengths        bool
	NormalizeUTF8                   bool
	NormalizeExplicitVRLittleEndian bool

	MaxBufferedValue int `validate:"omitempty,min=1"`
}

// PipelineOption configures a PipelineConfig.
type PipelineOption func(*PipelineConfig)

func WithDropFMI() PipelineOption { return func(c *PipelineConfig) { c.DropFMI = true } }

func WithDropGroupLengths() PipelineOption {
	return func(c *PipelineConfig) { c.DropGroupLengths = true }
}

func WithWhitelist(set PatternSet) PipelineOption {
	return func(c *PipelineConfig) { c.Whitelist = set }
}

func WithBlacklist(set PatternSet) PipelineOption {
	return func(c *PipelineConfig) { c.Blacklist = set }
}

func WithSplitNativeFrames() PipelineOption {
	return func(c *PipelineConfig) { c.SplitNativeFrames = true }
}

func WithDropBulkData() PipelineOption { return func(c *PipelineConfig) { c.DropBulkData = true } }

func WithNormalizeSequenceLengths() PipelineOption {
	return func(c *PipelineConfig) { c.NormalizeSequenceLengths = true }
}

func WithNormalizeUTF8() PipelineOption {
	return func(c *PipelineConfig) { c.NormalizeUTF8 = true }
}

func WithNormalizeExplicitVRLittleEndian() PipelineOption {
	return func(c *PipelineConfig) { c.NormalizeExplicitVRLittleEndian = true }
}

// WithMaxBufferedValue records a byte bound for CollectBulkData's
// reassembly buffer on the config, where NewPipelineConfig validates it.
// Build does not add a CollectBulkData stage, so the bound has no effect
// on the chain Build returns.
func WithMaxBufferedValue(n int) PipelineOption {
	return func(c *PipelineConfig) { c.MaxBufferedValue = n }
}

func WithPipelineDictionary(d Dictionary) PipelineOption {
	return func(c *PipelineConfig) { c.Dictionary = d }
}

// NewPipelineConfig validates and returns a PipelineConfig built from
// opts, defaulting to DefaultDictionary and an unbounded buffer.
func NewPipelineConfig(opts ...PipelineOption) (*PipelineConfig, error) {
	c := &PipelineConfig{Dictionary: DefaultDictionary}
	for _, opt := range opts {
		opt(c)
	}
	if err := configValidate.Struct(c); err != nil {
		return nil, fmt.Errorf("dicom: invalid pipeline config: %w", err)
	}
	return c, nil
}

// Build assembles the configured transforms into a single Handler,
// terminating the chain in sink (typically an Aggregator or a
// serializer). Transforms run in a fixed, spec-mandated order:
// drop/filter stages first (so later stages see less data), then
// bulk-data handling, then the normalizers, each of which may rewrite
// headers the earlier stages already decided to keep.
func (c *PipelineConfig) Build(sink Handler) Handler {
	stages := make([]Handler, 0, 8)
	if c.DropFMI {
		stages = append(stages, FMIFilter())
	}
	if c.DropGroupLengths {
		stages = append(stages, GroupLengthFilter())
	}
	if len(c.Whitelist) > 0 {
		stages = append(stages, WhitelistFilter(c.Whitelist, c.Dictionary))
	}
	if len(c.Blacklist) > 0 {
		stages = append(stages, BlacklistFilter(c.Blacklist, c.Dictionary))
	}
	if c.SplitNativeFrames {
		stages = append(stages, SplitNativePixelDataFrames())
	}
	if c.DropBulkData {
		stages = append(stages, BulkDataFilter())
	}
	if c.NormalizeSequenceLengths {
		stages = append(stages, SequenceLengthNormalizer())
	}
	if c.NormalizeUTF8 {
		stages = append(stages, UTF8Normalizer())
	}
	if c.NormalizeExplicitVRLittleEndian {
		stages = append(stages, ExplicitVRLittleEndianNormalizer())
	}
	stages = append(stages, sink)
	return Chain(stages...)
}

package dicom

import (
	"fmt"
	"io"
	"strings"

	"github.com/slicebox/dicomflow/dicomio"
	"github.com/slicebox/dicomflow/dicomlog"
)

// ErrNeedMoreBytes is returned by Parser.Next when the currently buffered
// bytes are insufficient to produce the next Part. It is not a failure:
// the caller should Feed more bytes and call Next again.
var ErrNeedMoreBytes = dicomio.ErrNeedMoreBytes

type parserState int

const (
	stateAtBeginning parserState = iota
	stateInFMI
	stateInDataset
	stateInDeflated
	stateFinished
)

type frameKind int

const (
	frameDataset frameKind = iota
	frameSequence
	frameFragments
)

// frame is one entry of the parser's open-construct stack. Determinate
// (non-indeterminate) frames carry a byte budget that every consumed
// byte decrements; when it reaches zero the frame is popped silently
// (the raw parser never synthesizes a delimitation part that wasn't on
// the wire -- that is the Flow framework's job, via
// GuaranteedDelimitationEvents).
type frame struct {
	kind         frameKind
	remaining    int64 // -1 means indeterminate length
	itemIndex    int   // current 1-based item index, for frameSequence/frameFragments
	insideItem   bool  // frameDataset only: true if this dataset is an item's nested dataset
}

func (f *frame) indeterminate() bool { return f.remaining < 0 }

// Parser is the streaming incremental DICOM parser. Bytes
// are supplied via Feed; parts are drained one at a time via Next.
type Parser struct {
	buf       *dicomio.Buffer
	dict      Dictionary
	chunkSize int
	stopTag   Tag
	hasStop   bool
	inflate   bool
	closed    bool // CloseInput called: no more bytes will ever be fed

	state parserState
	ts    TransferSyntax

	frames []*frame

	// FMI bookkeeping.
	fmiGroupLength  uint32
	haveGroupLength bool
	fmiEndPos       int64
	haveFMIEnd      bool
	haveTSUID       bool
	pendingTSUID    string

	// value-emission bookkeeping for the element currently being read
	// (shared by dataset/FMI value chunks and fragment payload chunks).
	valueRemaining uint32
	inFragmentItem bool

	// fmiValueTag/fmiValueAccum accumulate the full value of the two FMI
	// elements the parser must interpret itself (group length and
	// transfer syntax UID) as their chunks are produced.
	fmiValueTag   Tag
	fmiValueAccum []byte

	// deflate sub-parser plumbing.
	deflateRaw    []byte
	deflateParser *Parser
	deflateReady  bool
}

// ParserOption configures a Parser at construction time.
type ParserOption func(*Parser)

// WithChunkSize sets the maximum size of emitted ValueChunk/DeflatedChunk
// parts. Default 8192.
func WithChunkSize(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithStopTag configures cooperative early termination: parsing halts as
// soon as a top-level dataset header is read with tag >= stopTag.
func WithStopTag(tag Tag) ParserOption {
	return func(p *Parser) {
		p.stopTag = tag
		p.hasStop = true
	}
}

// WithInflate enables automatic inflation of deflated transfer syntaxes.
// When false, deflated payload passes through as raw DeflatedChunk parts.
func WithInflate(inflate bool) ParserOption {
	return func(p *Parser) { p.inflate = inflate }
}

// WithDictionary overrides the Dictionary used to resolve implicit-VR
// element VRs. Defaults to DefaultDictionary.
func WithDictionary(d Dictionary) ParserOption {
	return func(p *Parser) { p.dict = d }
}

// NewParser constructs a Parser ready to receive bytes via Feed.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		buf:       dicomio.NewBuffer(),
		dict:      DefaultDictionary,
		chunkSize: 8192,
		inflate:   true,
		state:     stateAtBeginning,
		frames:    []*frame{{kind: frameDataset, remaining: -1}},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed appends newly received bytes to the parser's input buffer.
func (p *Parser) Feed(chunk []byte) {
	p.buf.Append(chunk)
}

// CloseInput signals that no further bytes will ever be fed. This lets
// the parser distinguish "temporarily out of buffered data" from a true
// end of stream, which the truncation policy and the deflate one-shot
// inflation both need.
func (p *Parser) CloseInput() {
	p.closed = true
}

// Next advances the state machine as far as currently buffered bytes
// allow and returns exactly one Part. It returns ErrNeedMoreBytes if the
// buffered bytes cannot complete the next Part yet, or io.EOF once the
// stream (or the configured stop tag) is reached cleanly.
func (p *Parser) Next() (Part, error) {
	for {
		switch p.state {
		case stateFinished:
			return nil, io.EOF
		case stateAtBeginning:
			part, done, err := p.stepAtBeginning()
			if part != nil || err != nil {
				return part, err
			}
			if done {
				continue
			}
		case stateInFMI, stateInDataset:
			part, err := p.stepDataset()
			if part != nil || err != nil {
				return part, err
			}
		case stateInDeflated:
			part, err := p.stepDeflated()
			if part != nil || err != nil {
				return part, err
			}
		}
	}
}

func (p *Parser) topFrame() *frame { return p.frames[len(p.frames)-1] }

func (p *Parser) pushFrame(f *frame) { p.frames = append(p.frames, f) }

func (p *Parser) popFrame() {
	p.frames = p.frames[:len(p.frames)-1]
}

// chargeBytes decrements every open frame's determinate byte budget by
// n, the number of bytes just consumed from the wire.
func (p *Parser) chargeBytes(n int64) {
	for _, f := range p.frames {
		if !f.indeterminate() {
			f.remaining -= n
		}
	}
}

// --- AtBeginning ---

func (p *Parser) stepAtBeginning() (Part, bool, error) {
	// Try the 132-byte preamble+"DICM" sniff first.
	head, err := p.buf.Peek(132)
	if err == nil && string(head[128:132]) == "DICM" {
		bytes, _ := p.buf.Take(132)
		p.chargeBytes(132)
		return &PreamblePart{Bytes: append([]byte(nil), bytes...)}, false, nil
	}
	if err != nil {
		// Not enough bytes yet to decide; but if input is closed and we
		// have fewer than 132 bytes total with no "DICM" possible, fall
		// through to header sniffing (DICOM without preamble is valid).
		if p.closed && p.buf.Available() < 132 {
			// fall through
		} else {
			return nil, false, ErrNeedMoreBytes
		}
	}

	if p.closed && p.buf.Available() == 0 {
		p.state = stateFinished
		return nil, true, nil
	}

	ts, tag, err := p.detectDatasetSyntax()
	if err != nil {
		return nil, false, err
	}
	if tag.IsFMI() {
		p.state = stateInFMI
		p.ts = ExplicitVRLittleEndian
	} else {
		p.state = stateInDataset
		p.ts = ts
	}
	return nil, true, nil
}

// detectDatasetSyntax sniffs the first 8 bytes of an element to
// determine explicitness and endianness.
func (p *Parser) detectDatasetSyntax() (TransferSyntax, Tag, error) {
	b, err := p.buf.Peek(8)
	if err != nil {
		return TransferSyntax{}, 0, ErrNeedMoreBytes
	}

	leTag := NewTag(dicomio.U16(b[0:], dicomio.LittleEndian), dicomio.U16(b[2:], dicomio.LittleEndian))
	vrCode := string(b[4:6])
	if vr, vrErr := LookupVR(vrCode); vrErr == nil && p.dict.VROf(leTag).Code == vr.Code {
		return ExplicitVRLittleEndian, leTag, nil
	}

	leLength := int32(dicomio.U32(b[4:8], dicomio.LittleEndian))
	if leLength >= 0 {
		return ImplicitVRLittleEndian, leTag, nil
	}

	beTag := NewTag(dicomio.U16(b[0:], dicomio.BigEndian), dicomio.U16(b[2:], dicomio.BigEndian))
	if vr, vrErr := LookupVR(vrCode); vrErr == nil && p.dict.VROf(beTag).Code == vr.Code {
		return ExplicitVRBigEndian, beTag, nil
	}

	beLength := int32(dicomio.U32(b[4:8], dicomio.BigEndian))
	if beLength >= 0 {
		return TransferSyntax{}, 0, newErr(ProtocolViolation, "implicit VR big endian is not a supported encoding")
	}

	return TransferSyntax{}, 0, newErr(ProtocolViolation, "not a DICOM stream")
}

// --- InFMI / InDataset ---

func (p *Parser) stepDataset() (Part, error) {
	if p.inFragmentItem {
		return p.emitValueChunk()
	}

	top := p.topFrame()
	switch top.kind {
	case frameSequence, frameFragments:
		return p.stepSequenceLevel(top)
	default:
		return p.stepDatasetLevel(top)
	}
}

func (p *Parser) stepSequenceLevel(top *frame) (Part, error) {
	if top.indeterminate() {
		// wait for an explicit Item or SequenceDelimitationItem tag
	} else if top.remaining <= 0 {
		p.popFrame()
		return nil, nil
	}

	b, err := p.buf.Peek(8)
	if err != nil {
		return nil, ErrNeedMoreBytes
	}
	order := p.ts.ByteOrder()
	tag := NewTag(dicomio.U16(b[0:], order), dicomio.U16(b[2:], order))
	length := dicomio.U32(b[4:8], order)

	switch tag {
	case ItemTag:
		raw, _ := p.buf.Take(8)
		p.chargeBytes(8)
		top.itemIndex++
		if top.kind == frameFragments {
			p.inFragmentItem = length > 0
			p.valueRemaining = length
			return &ItemPart{Index: top.itemIndex, Length: length, BigEndian: p.ts.BigEndian, Bytes: append([]byte(nil), raw...)}, nil
		}
		p.pushFrame(&frame{kind: frameDataset, remaining: lengthBudget(length), insideItem: true})
		return &ItemPart{Index: top.itemIndex, Length: length, BigEndian: p.ts.BigEndian, Bytes: append([]byte(nil), raw...)}, nil

	case SequenceDelimitationItemTag:
		if length != 0 {
			dicomlog.Warnf("dicom: nonzero length %d on sequence delimitation item", length)
		}
		raw, _ := p.buf.Take(8)
		p.chargeBytes(8)
		p.popFrame()
		return &SequenceDelimitationPart{Marker: false, BigEndian: p.ts.BigEndian, Bytes: append([]byte(nil), raw...)}, nil

	default:
		if top.kind == frameFragments {
			raw, _ := p.buf.Take(8)
			p.chargeBytes(8)
			dicomlog.Warnf("dicom: unexpected tag %v inside fragments", tag)
			return &UnknownPart{Bytes: append([]byte(nil), raw...), Warning: fmt.Sprintf("unexpected tag %v inside fragments", tag)}, nil
		}
		return nil, newErr(ProtocolViolation, fmt.Sprintf("expected item or sequence delimitation tag, got %v", tag))
	}
}

func lengthBudget(length uint32) int64 {
	if length == UndefinedLength {
		return -1
	}
	return int64(length)
}

func (p *Parser) stepDatasetLevel(top *frame) (Part, error) {
	// finish streaming a pending element value.
	if p.valueRemaining > 0 {
		return p.emitValueChunk()
	}

	if !top.indeterminate() && top.remaining <= 0 {
		p.popFrame()
		return nil, nil
	}

	if p.state == stateInFMI && p.haveFMIEnd && p.buf.TotalConsumed >= p.fmiEndPos {
		return p.transitionOutOfFMI()
	}

	b, err := p.buf.Peek(4)
	if err != nil {
		if p.closed && p.buf.Available() == 0 && (p.state == stateInDataset || p.state == stateInFMI) && len(p.frames) == 1 {
			p.state = stateFinished
			return nil, io.EOF
		}
		return nil, ErrNeedMoreBytes
	}
	order := p.ts.ByteOrder()
	tag := NewTag(dicomio.U16(b[0:], order), dicomio.U16(b[2:], order))

	if top.insideItem && tag == ItemDelimitationItemTag {
		full, err := p.buf.Peek(8)
		if err != nil {
			return nil, ErrNeedMoreBytes
		}
		length := dicomio.U32(full[4:8], order)
		if length != 0 {
			dicomlog.Warnf("dicom: nonzero length %d on item delimitation item", length)
		}
		raw, _ := p.buf.Take(8)
		p.chargeBytes(8)
		p.popFrame()
		idx := p.topFrame().itemIndex
		return &ItemDelimitationPart{Index: idx, Marker: false, BigEndian: p.ts.BigEndian, Bytes: append([]byte(nil), raw...)}, nil
	}

	if p.state == stateInDataset && p.hasStop && uint32(tag) >= uint32(p.stopTag) && len(p.frames) == 1 {
		p.state = stateFinished
		return nil, io.EOF
	}

	return p.readNormalHeader(tag, order)
}

func (p *Parser) readNormalHeader(tag Tag, order dicomio.ByteOrder) (Part, error) {
	explicitVR := p.ts.Explicit
	if explicitVR {
		head, err := p.buf.Peek(6)
		if err != nil {
			return nil, ErrNeedMoreBytes
		}
		vrCode := string(head[4:6])
		vr, vrErr := LookupVR(vrCode)
		if vrErr != nil {
			vr = UN
		}
		if vr.HeaderLength == 12 {
			full, err := p.buf.Peek(12)
			if err != nil {
				return nil, ErrNeedMoreBytes
			}
			length := dicomio.U32(full[8:12], order)
			raw, _ := p.buf.Take(12)
			p.chargeBytes(12)
			return p.dispatchHeader(tag, vr, length, true, raw)
		}
		full, err := p.buf.Peek(8)
		if err != nil {
			return nil, ErrNeedMoreBytes
		}
		length := uint32(dicomio.U16(full[6:8], order))
		raw, _ := p.buf.Take(8)
		p.chargeBytes(8)
		return p.dispatchHeader(tag, vr, length, true, raw)
	}

	full, err := p.buf.Peek(8)
	if err != nil {
		return nil, ErrNeedMoreBytes
	}
	vr := p.dict.VROf(tag)
	length := dicomio.U32(full[4:8], order)
	raw, _ := p.buf.Take(8)
	p.chargeBytes(8)
	return p.dispatchHeader(tag, vr, length, false, raw)
}

func (p *Parser) dispatchHeader(tag Tag, vr *VR, length uint32, explicitVR bool, raw []byte) (Part, error) {
	rawCopy := append([]byte(nil), raw...)
	bigEndian := p.ts.BigEndian

	switch {
	case vr == SQ || (vr == UN && length == UndefinedLength):
		p.pushFrame(&frame{kind: frameSequence, remaining: lengthBudget(length)})
		return &SequencePart{Tag: tag, Length: length, BigEndian: bigEndian, ExplicitVR: explicitVR, Bytes: rawCopy}, nil

	case (vr == OB || vr == OW || vr == OD || vr == OF) && length == UndefinedLength:
		p.pushFrame(&frame{kind: frameFragments, remaining: -1})
		return &FragmentsPart{Tag: tag, VR: vr, BigEndian: bigEndian, ExplicitVR: explicitVR, Bytes: rawCopy}, nil

	default:
		header := &HeaderPart{Tag: tag, VR: vr, Length: length, BigEndian: bigEndian, ExplicitVR: explicitVR, Bytes: rawCopy}
		if p.state == stateInFMI && (tag == FileMetaInformationGroupLengthTag || tag == TransferSyntaxUIDTag) {
			p.fmiValueTag = tag
			p.fmiValueAccum = p.fmiValueAccum[:0]
		}
		if length > 0 {
			p.valueRemaining = length
		} else if p.fmiValueTag != 0 {
			p.finishFMIValue(order)
		}
		return header, nil
	}
}

// emitValueChunk streams up to chunkSize bytes of the value currently in
// progress, whether that is a normal element's value or a fragment's
// payload (distinguished by p.inFragmentItem).
func (p *Parser) emitValueChunk() (Part, error) {
	n := int(p.valueRemaining)
	if n > p.chunkSize {
		n = p.chunkSize
	}
	chunk, err := p.buf.Take(n)
	if err != nil {
		if p.closed && p.buf.Available() > 0 {
			chunk = p.buf.TakeUpTo(p.buf.Available())
			n = len(chunk)
		} else if p.closed {
			// truncated mid-value: close cleanly with an empty terminal
			// chunk.
			p.valueRemaining = 0
			p.inFragmentItem = false
			return &ValueChunkPart{Bytes: nil, Last: true}, nil
		} else {
			return nil, ErrNeedMoreBytes
		}
	}
	p.chargeBytes(int64(n))
	p.valueRemaining -= uint32(n)
	last := p.valueRemaining == 0
	out := append([]byte(nil), chunk...)
	if p.fmiValueTag != 0 {
		p.fmiValueAccum = append(p.fmiValueAccum, out...)
		if last {
			p.finishFMIValue(p.ts.ByteOrder())
		}
	}
	if last {
		p.inFragmentItem = false
	}
	return &ValueChunkPart{Bytes: out, Last: last}, nil
}

// finishFMIValue interprets the just-completed value of
// FileMetaInformationGroupLength or TransferSyntaxUID and clears the
// accumulator.
func (p *Parser) finishFMIValue(order dicomio.ByteOrder) {
	switch p.fmiValueTag {
	case FileMetaInformationGroupLengthTag:
		if len(p.fmiValueAccum) >= 4 {
			p.fmiGroupLength = dicomio.U32(p.fmiValueAccum, order)
			p.haveGroupLength = true
			p.fmiEndPos = p.buf.TotalConsumed + int64(p.fmiGroupLength)
			p.haveFMIEnd = true
		}
	case TransferSyntaxUIDTag:
		if len(p.fmiValueAccum) > 1024 {
			dicomlog.Warnf("dicom: oversize TransferSyntaxUID value (%d bytes), ignoring", len(p.fmiValueAccum))
		} else {
			uid := strings.TrimRight(string(p.fmiValueAccum), "\x00 ")
			p.pendingTSUID = uid
			p.haveTSUID = true
		}
	}
	p.fmiValueTag = 0
	p.fmiValueAccum = nil
}

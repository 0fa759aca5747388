package dicom

import "github.com/slicebox/dicomflow/dicomio"

// Validator sniffs the leading bytes of a stream to decide whether it is
// plausibly DICOM before any bytes are handed to a Parser, using the
// same two-tier sniff the parser itself performs to enter its dataset
// state: a 132-byte preamble+"DICM" check, falling back to an 8-byte
// header-shape check (explicit VR, or a length field that isn't
// negative when read as implicit VR) once enough bytes are in or the
// input is closed.
//
// Unlike the parser, Validator never advances past the sniffed bytes or
// emits parts; it only answers "does this look like DICOM". Feed bytes
// into it ahead of (or instead of) a Parser when the caller wants to
// reject non-DICOM input, e.g. a DICOMDIR listing, without running a
// full parse.
type Validator struct {
	dict        Dictionary
	drainOnFail bool
	buf         *dicomio.Buffer
	result      *bool
}

// NewValidator returns a Validator. dict resolves VRs for the
// explicit-VR half of the header-shape check; nil uses DefaultDictionary.
// When drainOnFail is true, a failed Validator immediately discards its
// buffered bytes instead of retaining them for Buffered to return.
func NewValidator(dict Dictionary, drainOnFail bool) *Validator {
	if dict == nil {
		dict = DefaultDictionary
	}
	return &Validator{dict: dict, drainOnFail: drainOnFail, buf: dicomio.NewBuffer()}
}

// Feed appends chunk and attempts to decide. Once Decided reports true,
// further Feed calls are no-ops.
func (v *Validator) Feed(chunk []byte) {
	if v.result != nil {
		return
	}
	v.buf.Append(chunk)
	v.tryDecide(false)
}

// Close signals the input is exhausted, forcing a decision from
// whatever bytes were fed even if fewer than 132 were ever seen.
func (v *Validator) Close() {
	if v.result != nil {
		return
	}
	v.tryDecide(true)
}

// Decided reports whether Feed/Close have reached a verdict yet.
func (v *Validator) Decided() bool { return v.result != nil }

// Valid returns the verdict and true once Decided; (false, false)
// beforehand.
func (v *Validator) Valid() (valid bool, decided bool) {
	if v.result == nil {
		return false, false
	}
	return *v.result, true
}

// Buffered returns the leading bytes sniffed so far. After a failed
// verdict with drainOnFail set, this is always empty.
func (v *Validator) Buffered() []byte {
	n := v.buf.Available()
	if n == 0 {
		return nil
	}
	b, _ := v.buf.Peek(n)
	return append([]byte(nil), b...)
}

func (v *Validator) tryDecide(closed bool) {
	head, err := v.buf.Peek(132)
	if err == nil {
		v.decide(string(head[128:132]) == "DICM")
		return
	}
	if !closed && v.buf.Available() < 132 {
		return
	}
	b, err := v.buf.Peek(8)
	if err != nil {
		v.decide(false)
		return
	}
	v.decide(v.looksLikeHeader(b))
}

// looksLikeHeader mirrors Parser.detectDatasetSyntax's plausibility
// checks without committing to a transfer syntax: a recognized VR code
// at offset 4 under either endianness, or a length field that isn't
// negative when read as implicit VR little endian.
func (v *Validator) looksLikeHeader(b []byte) bool {
	vrCode := string(b[4:6])

	leTag := NewTag(dicomio.U16(b[0:], dicomio.LittleEndian), dicomio.U16(b[2:], dicomio.LittleEndian))
	if vr, err := LookupVR(vrCode); err == nil && v.dict.VROf(leTag).Code == vr.Code {
		return true
	}
	if int32(dicomio.U32(b[4:8], dicomio.LittleEndian)) >= 0 {
		return true
	}
	beTag := NewTag(dicomio.U16(b[0:], dicomio.BigEndian), dicomio.U16(b[2:], dicomio.BigEndian))
	if vr, err := LookupVR(vrCode); err == nil && v.dict.VROf(beTag).Code == vr.Code {
		return true
	}
	return false
}

func (v *Validator) decide(valid bool) {
	v.result = &valid
	if !valid && v.drainOnFail {
		v.buf = dicomio.NewBuffer()
	}
}

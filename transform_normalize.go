package dicom

// lengthNormEntry remembers, for one open Sequence or Item, whether its
// header was rewritten from a determinate length to UndefinedLength, so
// the matching delimitation can be materialized as a real (non-marker)
// part instead of passed through.
type lengthNormEntry struct {
	item      bool
	rewritten bool
}

// SequenceLengthNormalizer rewrites every determinate-length Sequence
// and Item header to UndefinedLength and turns the synthetic
// delimitation that GuaranteedDelimitationEvents fires for it into a
// real, wire-representable delimitation part. It must sit downstream of
// GuaranteedDelimitationEvents in the chain, which is what supplies the
// synthetic delimitation in the first place; already-indeterminate
// constructs pass through both their header and their (already real)
// delimitation unchanged.
func SequenceLengthNormalizer() Handler {
	var stack []lengthNormEntry

	pop := func(item bool) bool {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].item == item {
				rewritten := stack[i].rewritten
				stack = append(stack[:i], stack[i+1:]...)
				return rewritten
			}
		}
		return false
	}

	return HandlerFunc(func(part Part) ([]Part, error) {
		switch p := part.(type) {
		case *SequencePart:
			if p.Indeterminate() {
				stack = append(stack, lengthNormEntry{item: false})
				return []Part{part}, nil
			}
			stack = append(stack, lengthNormEntry{item: false, rewritten: true})
			np := *p
			np.Length, np.Bytes = UndefinedLength, nil
			return []Part{&np}, nil
		case *ItemPart:
			if p.Indeterminate() {
				stack = append(stack, lengthNormEntry{item: true})
				return []Part{part}, nil
			}
			stack = append(stack, lengthNormEntry{item: true, rewritten: true})
			np := *p
			np.Length, np.Bytes = UndefinedLength, nil
			return []Part{&np}, nil
		case *SequenceDelimitationPart:
			if pop(false) && p.Marker {
				np := *p
				np.Marker = false
				return []Part{&np}, nil
			}
			return []Part{part}, nil
		case *ItemDelimitationPart:
			if pop(true) && p.Marker {
				np := *p
				np.Marker = false
				return []Part{&np}, nil
			}
			return []Part{part}, nil
		}
		return []Part{part}, nil
	})
}

// UTF8Normalizer rewrites SpecificCharacterSet to "ISO_IR 192" and
// re-encodes every character-set-affected value (LO, LT, PN, SH, ST, UT,
// UC) from its original repertoire to UTF-8. It buffers each affected
// element's value until the final chunk so the rewritten header can
// carry the correct post-recoding length; it must sit downstream of
// GuaranteedValueEvent so a zero-length element still produces the
// chunk this buffering waits for.
func UTF8Normalizer() Handler {
	sets := DefaultCharacterSets
	var pendingTag Tag
	var pendingVR *VR
	var pendingBig, pendingExplicit bool
	var isCharsetElem bool
	var buf []byte

	return HandlerFunc(func(part Part) ([]Part, error) {
		switch p := part.(type) {
		case *HeaderPart:
			isCharsetElem = p.Tag == SpecificCharacterSetTag
			if isCharsetElem || (p.VR != nil && p.VR.CharacterSetAffected()) {
				pendingTag, pendingVR, pendingBig, pendingExplicit = p.Tag, p.VR, p.BigEndian, p.ExplicitVR
				buf = nil
				return nil, nil
			}
			pendingVR = nil
			return []Part{part}, nil
		case *ValueChunkPart:
			if pendingVR == nil && !isCharsetElem {
				return []Part{part}, nil
			}
			buf = append(buf, p.Bytes...)
			if !p.Last {
				return nil, nil
			}
			var newVal Value
			if isCharsetElem {
				sets = ParseCharacterSets(NewRawValue(buf).Strings(CS))
				newVal = NewStringValue(CS, []string{"ISO_IR 192"})
			} else {
				newVal = NewStringValue(pendingVR, NewRawValue(buf).DecodedStrings(pendingVR, sets))
			}
			hdr := &HeaderPart{Tag: pendingTag, VR: pendingVR, Length: uint32(newVal.Len()), BigEndian: pendingBig, ExplicitVR: pendingExplicit}
			if isCharsetElem {
				hdr.VR = CS
			}
			pendingVR = nil
			return []Part{hdr, &ValueChunkPart{Bytes: newVal.Bytes(), Last: true}}, nil
		}
		return []Part{part}, nil
	})
}

// needsByteSwap reports whether a big-endian source value of this VR
// must have its element words reversed when moving to little-endian.
// Text and opaque-byte VRs are endianness-agnostic and pass through
// unswapped.
func needsByteSwap(vr *VR, srcBigEndian bool) bool {
	if vr == nil || !srcBigEndian {
		return false
	}
	return vr.Is2ByteUnit() || vr.Is4ByteUnit() || vr.Is8ByteUnit()
}

func swapWidth(vr *VR) int {
	switch {
	case vr.Is2ByteUnit():
		return 2
	case vr.Is4ByteUnit():
		return 4
	case vr.Is8ByteUnit():
		return 8
	default:
		return 1
	}
}

func reverseWords(b []byte, width int) []byte {
	out := make([]byte, len(b))
	for i := 0; i+width <= len(b); i += width {
		for j := 0; j < width; j++ {
			out[i+j] = b[i+width-1-j]
		}
	}
	return out
}

// ExplicitVRLittleEndianNormalizer forces every element to Explicit VR
// Little Endian: it replaces the TransferSyntaxUID value with the
// Explicit VR Little Endian UID, flips BigEndian/ExplicitVR on every
// other part, and byte-swaps the value of any element whose VR is
// word-sized when the source was big endian. Values that need swapping
// are buffered until their final chunk, the same way the character-set
// normalizer buffers what it must rewrite in full.
func ExplicitVRLittleEndianNormalizer() Handler {
	var swapping *HeaderPart
	var buf []byte
	var suppressingSyntax bool

	return HandlerFunc(func(part Part) ([]Part, error) {
		switch p := part.(type) {
		case *HeaderPart:
			suppressingSyntax = false
			swapping = nil
			if p.Tag == TransferSyntaxUIDTag {
				suppressingSyntax = true
				newVal := NewUIDValue(ExplicitVRLittleEndianUID)
				hdr := &HeaderPart{Tag: p.Tag, VR: UI, Length: uint32(newVal.Len())}
				return []Part{hdr, &ValueChunkPart{Bytes: newVal.Bytes(), Last: true}}, nil
			}
			if !needsByteSwap(p.VR, p.BigEndian) {
				np := *p
				np.BigEndian, np.ExplicitVR, np.Bytes = false, true, nil
				return []Part{&np}, nil
			}
			np := *p
			np.BigEndian, np.ExplicitVR, np.Bytes = false, true, nil
			swapping = &np
			buf = nil
			return nil, nil
		case *ValueChunkPart:
			if suppressingSyntax {
				if p.Last {
					suppressingSyntax = false
				}
				return nil, nil
			}
			if swapping == nil {
				return []Part{part}, nil
			}
			buf = append(buf, p.Bytes...)
			if !p.Last {
				return nil, nil
			}
			hdr := swapping
			swapping = nil
			swapped := reverseWords(buf, swapWidth(hdr.VR))
			return []Part{hdr, &ValueChunkPart{Bytes: swapped, Last: true}}, nil
		case *SequencePart:
			np := *p
			np.BigEndian, np.ExplicitVR, np.Bytes = false, true, nil
			return []Part{&np}, nil
		case *ItemPart:
			np := *p
			np.BigEndian, np.Bytes = false, nil
			return []Part{&np}, nil
		case *SequenceDelimitationPart:
			np := *p
			np.BigEndian, np.Bytes = false, nil
			return []Part{&np}, nil
		case *ItemDelimitationPart:
			np := *p
			np.BigEndian, np.Bytes = false, nil
			return []Part{&np}, nil
		case *FragmentsPart:
			np := *p
			np.BigEndian, np.ExplicitVR, np.Bytes = false, true, nil
			return []Part{&np}, nil
		}
		return []Part{part}, nil
	})
}

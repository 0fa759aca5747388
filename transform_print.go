package dicom

import "github.com/slicebox/dicomflow/dicomlog"

// Print is a diagnostic pass-through Handler: it logs one line per part
// at verbosity level via dicomlog.Vprintf and forwards every part
// unchanged. dict is used to render keyword tag paths in the log line;
// nil falls back to numeric tags.
func Print(level int, dict Dictionary) Handler {
	tracker := TagPathTracking(nil)

	return HandlerFunc(func(part Part) ([]Part, error) {
		tracker.Update(part)
		path := tracker.Path.String()
		if dict != nil {
			path = tracker.Path.KeywordString(dict)
		}

		switch p := part.(type) {
		case *HeaderPart:
			dicomlog.Vprintf(level, "dicom: %s %s length=%d", path, p.VR, p.Length)
		case *SequencePart:
			dicomlog.Vprintf(level, "dicom: %s sequence length=%d", path, p.Length)
		case *FragmentsPart:
			dicomlog.Vprintf(level, "dicom: %s fragments", path)
		case *ItemPart:
			dicomlog.Vprintf(level, "dicom: %s item[%d] length=%d", path, p.Index, p.Length)
		case *SequenceDelimitationPart:
			dicomlog.Vprintf(level, "dicom: %s sequence delimitation (marker=%v)", path, p.Marker)
		case *ItemDelimitationPart:
			dicomlog.Vprintf(level, "dicom: %s item delimitation (marker=%v)", path, p.Marker)
		default:
			dicomlog.Vprintf(level, "dicom: %T", part)
		}
		return []Part{part}, nil
	})
}

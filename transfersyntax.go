package dicom

import "github.com/slicebox/dicomflow/dicomio"

// Transfer Syntax UIDs recognized by the core.
const (
	ImplicitVRLittleEndianUID       = "1.2.840.10008.1.2"
	ExplicitVRLittleEndianUID       = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndianUID          = "1.2.840.10008.1.2.2"
	DeflatedExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1.99"
	JPIPReferencedDeflateUID        = "1.2.840.10008.1.2.4.95"
)

// TransferSyntax captures the endianness, VR explicitness, and
// deflation of a transfer syntax UID.
type TransferSyntax struct {
	UID         string
	Explicit    bool
	BigEndian   bool
	Deflated    bool
}

func (ts TransferSyntax) ByteOrder() dicomio.ByteOrder {
	if ts.BigEndian {
		return dicomio.BigEndian
	}
	return dicomio.LittleEndian
}

var (
	ImplicitVRLittleEndian       = TransferSyntax{UID: ImplicitVRLittleEndianUID}
	ExplicitVRLittleEndian       = TransferSyntax{UID: ExplicitVRLittleEndianUID, Explicit: true}
	ExplicitVRBigEndian          = TransferSyntax{UID: ExplicitVRBigEndianUID, Explicit: true, BigEndian: true}
	DeflatedExplicitVRLittleEndian = TransferSyntax{UID: DeflatedExplicitVRLittleEndianUID, Explicit: true, Deflated: true}
	JPIPReferencedDeflate        = TransferSyntax{UID: JPIPReferencedDeflateUID, Explicit: true, Deflated: true}
)

// LookupTransferSyntax resolves a UID (already trimmed of trailing NUL
// and padding) to its TransferSyntax. Any UID not explicitly enumerated
// here defaults to Explicit VR Little Endian, matching PS3.5 A.4.
func LookupTransferSyntax(uid string) TransferSyntax {
	switch uid {
	case ImplicitVRLittleEndianUID:
		return ImplicitVRLittleEndian
	case ExplicitVRLittleEndianUID:
		return ExplicitVRLittleEndian
	case ExplicitVRBigEndianUID:
		return ExplicitVRBigEndian
	case DeflatedExplicitVRLittleEndianUID:
		return DeflatedExplicitVRLittleEndian
	case JPIPReferencedDeflateUID:
		return JPIPReferencedDeflate
	default:
		return ExplicitVRLittleEndian
	}
}

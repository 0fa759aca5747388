package dicom

import "github.com/slicebox/dicomflow/dicomlog"

// transitionOutOfFMI resolves the dataset transfer syntax once the File
// Meta Information group has been fully consumed and switches the
// parser into either InDataset or InDeflated.
func (p *Parser) transitionOutOfFMI() (Part, error) {
	if !p.haveTSUID {
		dicomlog.Warnf("dicom: no TransferSyntaxUID found in file meta information, assuming Explicit VR Little Endian")
		p.ts = ExplicitVRLittleEndian
	} else {
		p.ts = LookupTransferSyntax(p.pendingTSUID)
	}
	if p.ts.Deflated {
		p.state = stateInDeflated
	} else {
		p.state = stateInDataset
	}
	return nil, nil
}

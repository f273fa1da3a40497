package esam

import "encoding/xml"

// Element names carry their literal prefixes so the output matches what the
// transcoder's schema validator expects byte for byte.

type signalProcessingNotification struct {
	XMLName           xml.Name           `xml:"SignalProcessingNotification"`
	Xmlns             string             `xml:"xmlns,attr"`
	XmlnsSig          string             `xml:"xmlns:sig,attr"`
	XmlnsCommon       string             `xml:"xmlns:common,attr"`
	XmlnsXsi          string             `xml:"xmlns:xsi,attr"`
	BatchInfo         batchInfo          `xml:"common:BatchInfo"`
	ResponseSignals   []responseSignal   `xml:"ResponseSignal"`
	ConditioningInfos []conditioningInfo `xml:"ConditioningInfo"`
}

type batchInfo struct {
	BatchID string      `xml:"batchId,attr"`
	Source  batchSource `xml:"common:Source"`
}

type batchSource struct {
	Type string `xml:"xsi:type,attr"`
}

type responseSignal struct {
	AcquisitionPointIdentity string                `xml:"acquisitionPointIdentity,attr"`
	AcquisitionSignalID      int                   `xml:"acquisitionSignalID,attr"`
	SignalPointID            int                   `xml:"signalPointID,attr"`
	Action                   string                `xml:"action,attr"`
	NPTPoint                 nptPoint              `xml:"sig:NPTPoint"`
	SCTE35PointDescriptor    scte35PointDescriptor `xml:"sig:SCTE35PointDescriptor"`
}

type nptPoint struct {
	Point string `xml:"nptPoint,attr"`
}

type scte35PointDescriptor struct {
	SpliceCommandType          string                     `xml:"spliceCommandType,attr"`
	SegmentationDescriptorInfo segmentationDescriptorInfo `xml:"sig:SegmentationDescriptorInfo"`
}

type segmentationDescriptorInfo struct {
	SegmentEventID int    `xml:"segmentEventId,attr"`
	SegmentTypeID  string `xml:"segmentTypeId,attr"`
}

type conditioningInfo struct {
	StartOffset            string `xml:"startOffset,attr"`
	AcquisitionSignalIDRef int    `xml:"acquisitionSignalIDRef,attr"`
	Duration               string `xml:"duration,attr"`
	Segment                string `xml:"Segment"`
}

type manifestConfirmConditionNotification struct {
	XMLName           xml.Name           `xml:"ManifestConfirmConditionNotification"`
	Xmlns             string             `xml:"xmlns,attr"`
	ManifestResponses []manifestResponse `xml:"ManifestResponse"`
}

type manifestResponse struct {
	AcquisitionPointIdentity string        `xml:"acquisitionPointIdentity,attr"`
	AcquisitionSignalID      int           `xml:"acquisitionSignalID,attr"`
	Duration                 string        `xml:"duration,attr"`
	DataPassThrough          string        `xml:"dataPassThrough,attr"`
	SegmentModify            segmentModify `xml:"SegmentModify"`
}

type segmentModify struct {
	FirstSegment firstSegment `xml:"FirstSegment"`
}

type firstSegment struct {
	Tags []manifestTag `xml:"Tag"`
}

type manifestTag struct {
	Value string `xml:"value,attr"`
}

// Package report decodes traffic-counter reports produced by the devices, computes their
// content digest and turns them into records ready for persistence.
package report

import (
	"bytes"
	"encoding/json"
)

// Text is a string attribute that devices may encode either as a JSON string or as a bare number.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*t = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

// OneOrMany accepts either a single JSON object or an array of them.
// Devices emit a bare object when a list has a single element.
type OneOrMany[T any] []T

func (o *OneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*o = nil
		return nil
	}

	if b[0] == '[' {
		var many []T
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}

	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*o = OneOrMany[T]{one}
	return nil
}

// Metrics is the root of a device report.
type Metrics struct {
	DeviceName *Text       `json:"@Devicename,omitempty"`
	DeviceID   *Text       `json:"@DeviceId,omitempty"`
	SiteName   *Text       `json:"@Sitename,omitempty"`
	SiteID     *Text       `json:"@SiteId,omitempty"`
	Properties *Properties `json:"Properties,omitempty"`
	ReportData *ReportData `json:"ReportData,omitempty"`
}

// Properties carries network and hardware metadata of the device.
type Properties struct {
	MacAddress   *Text `json:"MacAddress,omitempty"`
	IPAddress    *Text `json:"IpAddress,omitempty"`
	HTTPPort     *Text `json:"HttpPort,omitempty"`
	HTTPSPort    *Text `json:"HttpsPort,omitempty"`
	HostName     *Text `json:"HostName,omitempty"`
	TimeZone     *Text `json:"TimeZone,omitempty"`
	DST          *Text `json:"DST,omitempty"`
	DeviceType   *Text `json:"DeviceType,omitempty"`
	SerialNumber *Text `json:"SerialNumber,omitempty"`
	HwPlatform   *Text `json:"HwPlatform,omitempty"`
}

type ReportData struct {
	Interval *Text      `json:"@Interval,omitempty"`
	Report   *DayReport `json:"Report,omitempty"`
}

// DayReport holds the counts of one report date.
type DayReport struct {
	Date    *Text                      `json:"@Date,omitempty"`
	Objects OneOrMany[MonitoredObject] `json:"Object,omitempty"`
}

// MonitoredObject is a counting line or zone configured on the device.
type MonitoredObject struct {
	DeviceName *Text            `json:"@DeviceName,omitempty"`
	DeviceID   *Text            `json:"@DeviceId,omitempty"`
	ObjectType *Text            `json:"@ObjectType,omitempty"`
	Name       *Text            `json:"@Name,omitempty"`
	ID         *Text            `json:"@Id,omitempty"`
	Counts     OneOrMany[Count] `json:"Count,omitempty"`
}

// Count is one time bucket of enter/exit totals.
type Count struct {
	StartTime            *Text `json:"@StartTime,omitempty"`
	EndTime              *Text `json:"@EndTime,omitempty"`
	Enters               *Text `json:"@Enters,omitempty"`
	Exits                *Text `json:"@Exits,omitempty"`
	EntersFemaleCustomer *Text `json:"@EntersFemaleCustomer,omitempty"`
	ExitsFemaleCustomer  *Text `json:"@ExitsFemaleCustomer,omitempty"`
	EntersMaleCustomer   *Text `json:"@EntersMaleCustomer,omitempty"`
	ExitsMaleCustomer    *Text `json:"@ExitsMaleCustomer,omitempty"`
	EntersUnknown        *Text `json:"@EntersUnknown,omitempty"`
	ExitsUnknown         *Text `json:"@ExitsUnknown,omitempty"`
	Status               *Text `json:"@Status,omitempty"`
}

// Report is a parsed device report.
//
// It keeps both the typed view of the report body and the generic decoded document.
// Identity is read from the document with exact keys, and fields unknown to this package
// still take part in the digest and are persisted.
type Report struct {
	File    string
	Metrics *Metrics

	deviceID string
	siteID   string
	doc      map[string]any
}

func deref(t *Text) string {
	if t == nil {
		return ""
	}
	return string(*t)
}

// DeviceID returns the exact "@DeviceId" attribute of the Metrics object.
func (r *Report) DeviceID() string {
	return r.deviceID
}

// SiteID returns the store code the device reports itself in.
func (r *Report) SiteID() string {
	return r.siteID
}

func (r *Report) DeviceName() string {
	return deref(r.Metrics.DeviceName)
}

// Date returns the report date, or "" when the report carries no body.
func (r *Report) Date() string {
	if r.Metrics.ReportData == nil || r.Metrics.ReportData.Report == nil {
		return ""
	}
	return deref(r.Metrics.ReportData.Report.Date)
}

// Objects returns the monitored objects of the report body.
func (r *Report) Objects() []MonitoredObject {
	if r.Metrics.ReportData == nil || r.Metrics.ReportData.Report == nil {
		return nil
	}
	return r.Metrics.ReportData.Report.Objects
}

// metricsObject returns a shallow copy of the generic Metrics object.
func (r *Report) metricsObject() map[string]any {
	out := map[string]any{}
	if m, ok := r.doc["Metrics"].(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

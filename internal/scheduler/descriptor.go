package scheduler

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

const (
	taskNamespace = "http://schemas.microsoft.com/windows/2004/02/mit/task"
	taskVersion   = "1.2"
	xmlHeader     = `<?xml version="1.0" encoding="UTF-16"?>` + "\n"

	// DateLayout is the local, zone-less timestamp the scheduler expects in
	// RegistrationInfo/Date.
	DateLayout = "2006-01-02T15:04:05"

	RunLevelHighest = "HighestAvailable"
	RunLevelLeast   = "LeastPrivilege"

	// AdministratorsSID is BUILTIN\Administrators, used when the current
	// user's SID cannot be resolved.
	AdministratorsSID = "S-1-5-32-544"
)

// Descriptor is the Task Scheduler 1.2 XML document registered for a task.
type Descriptor struct {
	XMLName          xml.Name         `xml:"Task"`
	Version          string           `xml:"version,attr"`
	Xmlns            string           `xml:"xmlns,attr"`
	RegistrationInfo RegistrationInfo `xml:"RegistrationInfo"`
	Triggers         struct{}         `xml:"Triggers"`
	Principals       Principals       `xml:"Principals"`
	Settings         Settings         `xml:"Settings"`
	Actions          Actions          `xml:"Actions"`
}

type RegistrationInfo struct {
	Date        string `xml:"Date"`
	Author      string `xml:"Author"`
	Description string `xml:"Description"`
	URI         string `xml:"URI"`
}

type Principals struct {
	Principal Principal `xml:"Principal"`
}

type Principal struct {
	ID        string `xml:"id,attr"`
	UserID    string `xml:"UserId"`
	LogonType string `xml:"LogonType"`
	RunLevel  string `xml:"RunLevel"`
}

type Settings struct {
	MultipleInstancesPolicy    string       `xml:"MultipleInstancesPolicy"`
	DisallowStartIfOnBatteries bool         `xml:"DisallowStartIfOnBatteries"`
	StopIfGoingOnBatteries     bool         `xml:"StopIfGoingOnBatteries"`
	AllowHardTerminate         bool         `xml:"AllowHardTerminate"`
	StartWhenAvailable         bool         `xml:"StartWhenAvailable"`
	RunOnlyIfNetworkAvailable  bool         `xml:"RunOnlyIfNetworkAvailable"`
	IdleSettings               IdleSettings `xml:"IdleSettings"`
	AllowStartOnDemand         bool         `xml:"AllowStartOnDemand"`
	Enabled                    bool         `xml:"Enabled"`
	Hidden                     bool         `xml:"Hidden"`
	RunOnlyIfIdle              bool         `xml:"RunOnlyIfIdle"`
	WakeToRun                  bool         `xml:"WakeToRun"`
	ExecutionTimeLimit         string       `xml:"ExecutionTimeLimit"`
	Priority                   int          `xml:"Priority"`
}

type IdleSettings struct {
	StopOnIdleEnd bool `xml:"StopOnIdleEnd"`
	RestartOnIdle bool `xml:"RestartOnIdle"`
}

type Actions struct {
	Context string `xml:"Context,attr"`
	Exec    Exec   `xml:"Exec"`
}

type Exec struct {
	Command          string `xml:"Command"`
	WorkingDirectory string `xml:"WorkingDirectory"`
}

// DescriptorParams is everything that varies between generated tasks.
type DescriptorParams struct {
	Name        string
	Program     string
	WorkingDir  string
	Description string
	RunLevel    string
	Author      string
	UserID      string
	Date        time.Time
}

// MapRunLevel maps the CLI run level to the scheduler's value. Only
// "highest" elevates; anything else runs with least privilege.
func MapRunLevel(level string) string {
	if strings.EqualFold(strings.TrimSpace(level), "highest") {
		return RunLevelHighest
	}
	return RunLevelLeast
}

// NewDescriptor builds an on-demand task (no triggers) that runs Program
// interactively as UserID.
func NewDescriptor(p DescriptorParams) *Descriptor {
	return &Descriptor{
		Version: taskVersion,
		Xmlns:   taskNamespace,
		RegistrationInfo: RegistrationInfo{
			Date:        p.Date.Format(DateLayout),
			Author:      p.Author,
			Description: p.Description,
			URI:         `\` + strings.TrimPrefix(p.Name, `\`),
		},
		Principals: Principals{
			Principal: Principal{
				ID:        "Author",
				UserID:    p.UserID,
				LogonType: "InteractiveToken",
				RunLevel:  MapRunLevel(p.RunLevel),
			},
		},
		Settings: Settings{
			MultipleInstancesPolicy: "IgnoreNew",
			AllowHardTerminate:      true,
			IdleSettings: IdleSettings{
				StopOnIdleEnd: true,
			},
			AllowStartOnDemand: true,
			Enabled:            true,
			ExecutionTimeLimit: "PT72H",
			Priority:           4,
		},
		Actions: Actions{
			Context: "Author",
			Exec: Exec{
				Command:          p.Program,
				WorkingDirectory: p.WorkingDir,
			},
		},
	}
}

// Text renders the document with its XML declaration as a Go string.
func (d *Descriptor) Text() (string, error) {
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal task descriptor: %w", err)
	}
	return xmlHeader + string(body), nil
}

// Encode renders the document as UTF-16LE with a BOM, matching the
// encoding named in the declaration. schtasks /XML rejects a UTF-8 body
// that claims UTF-16.
func (d *Descriptor) Encode() ([]byte, error) {
	text, err := d.Text()
	if err != nil {
		return nil, err
	}
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode task descriptor: %w", err)
	}
	return out, nil
}

// DecodeDescriptorText turns a descriptor file back into text. UTF-16 with
// a BOM is decoded; anything else is taken as UTF-8.
func DecodeDescriptorText(data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decode task descriptor: %w", err)
		}
		return string(out), nil
	}
	return string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})), nil
}

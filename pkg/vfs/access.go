package vfs

import (
	"fmt"
	"strconv"
	"strings"
)

// AccessMask is an NT access mask as carried by SMB2 CREATE requests.
//
// Bits 0-15 are object-specific rights, 16-20 standard rights, 25 is
// MAXIMUM_ALLOWED and 28-31 are generic rights that the storage layer maps
// onto specific ones.
type AccessMask uint32

const (
	FileReadData        AccessMask = 0x00000001
	FileWriteData       AccessMask = 0x00000002
	FileAppendData      AccessMask = 0x00000004
	FileReadEA          AccessMask = 0x00000008
	FileWriteEA         AccessMask = 0x00000010
	FileExecute         AccessMask = 0x00000020
	FileDeleteChild     AccessMask = 0x00000040
	FileReadAttributes  AccessMask = 0x00000080
	FileWriteAttributes AccessMask = 0x00000100

	Delete      AccessMask = 0x00010000
	ReadControl AccessMask = 0x00020000
	WriteDAC    AccessMask = 0x00040000
	WriteOwner  AccessMask = 0x00080000
	Synchronize AccessMask = 0x00100000

	MaximumAllowed AccessMask = 0x02000000

	GenericAll     AccessMask = 0x10000000
	GenericExecute AccessMask = 0x20000000
	GenericWrite   AccessMask = 0x40000000
	GenericRead    AccessMask = 0x80000000
)

// WriteAccessMask is the set of rights that can alter a file's data,
// attributes, existence or security descriptor. Holding any one of them is
// write-capable access.
const WriteAccessMask = FileWriteData | FileAppendData | FileWriteAttributes | Delete | WriteDAC | WriteOwner

// Generic right mappings for files (MS-SMB2 3.3.5.9, FILE_GENERIC_*).
const (
	FileGenericRead    = FileReadData | FileReadAttributes | FileReadEA | ReadControl | Synchronize
	FileGenericWrite   = FileWriteData | FileAppendData | FileWriteAttributes | FileWriteEA | ReadControl | Synchronize
	FileGenericExecute = FileExecute | FileReadAttributes | ReadControl | Synchronize
	FileAllAccess      AccessMask = 0x001F01FF
)

// Intersects reports whether m shares at least one bit with other.
func (m AccessMask) Intersects(other AccessMask) bool {
	return m&other != 0
}

// Contains reports whether every bit of other is set in m.
func (m AccessMask) Contains(other AccessMask) bool {
	return m&other == other
}

// MapGeneric replaces generic rights with the specific file rights they
// stand for. MaximumAllowed is left in place.
func (m AccessMask) MapGeneric() AccessMask {
	mapped := m &^ (GenericAll | GenericExecute | GenericWrite | GenericRead)
	if m&GenericRead != 0 {
		mapped |= FileGenericRead
	}
	if m&GenericWrite != 0 {
		mapped |= FileGenericWrite
	}
	if m&GenericExecute != 0 {
		mapped |= FileGenericExecute
	}
	if m&GenericAll != 0 {
		mapped |= FileAllAccess
	}
	return mapped
}

var accessNames = []struct {
	bit  AccessMask
	name string
}{
	{FileReadData, "read_data"},
	{FileWriteData, "write_data"},
	{FileAppendData, "append_data"},
	{FileReadEA, "read_ea"},
	{FileWriteEA, "write_ea"},
	{FileExecute, "execute"},
	{FileDeleteChild, "delete_child"},
	{FileReadAttributes, "read_attributes"},
	{FileWriteAttributes, "write_attributes"},
	{Delete, "delete"},
	{ReadControl, "read_control"},
	{WriteDAC, "write_dac"},
	{WriteOwner, "write_owner"},
	{Synchronize, "synchronize"},
	{MaximumAllowed, "maximum_allowed"},
	{GenericAll, "generic_all"},
	{GenericExecute, "generic_execute"},
	{GenericWrite, "generic_write"},
	{GenericRead, "generic_read"},
}

// Shorthands accepted by ParseAccessMask in addition to the bit names.
var accessAliases = map[string]AccessMask{
	"read":  FileGenericRead,
	"write": FileGenericWrite,
	"rw":    FileGenericRead | FileGenericWrite,
	"all":   FileAllAccess,
	"max":   MaximumAllowed,
	"none":  0,
}

// String renders the mask as "name|name|...", with unknown bits in hex.
func (m AccessMask) String() string {
	if m == 0 {
		return "none"
	}

	var parts []string
	rest := m
	for _, entry := range accessNames {
		if m&entry.bit != 0 {
			parts = append(parts, entry.name)
			rest &^= entry.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseAccessMask parses a comma or pipe separated list of right names,
// aliases or numeric literals ("0x2", "0o4", "16").
func ParseAccessMask(s string) (AccessMask, error) {
	var mask AccessMask
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' })
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty access mask")
	}

	for _, field := range fields {
		name := strings.ToLower(strings.TrimSpace(field))
		if bit, ok := lookupAccessName(name); ok {
			mask |= bit
			continue
		}
		v, err := strconv.ParseUint(name, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("unknown access right %q", field)
		}
		mask |= AccessMask(v)
	}
	return mask, nil
}

func lookupAccessName(name string) (AccessMask, bool) {
	if bit, ok := accessAliases[name]; ok {
		return bit, true
	}
	for _, entry := range accessNames {
		if entry.name == name {
			return entry.bit, true
		}
	}
	return 0, false
}

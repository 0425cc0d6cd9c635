package domain

import "github.com/google/uuid"

// Capability is a snippet access tier. Manage implies Write, Write implies Read.
type Capability int

const (
	CapabilityRead Capability = iota + 1
	CapabilityWrite
	CapabilityManage
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case CapabilityRead:
		return "read"
	case CapabilityWrite:
		return "write"
	case CapabilityManage:
		return "manage"
	default:
		return "unknown"
	}
}

// AccessDecision is the evaluated access of one accessor to one snippet.
// It is immutable once built.
type AccessDecision struct {
	snippetID  uuid.UUID
	accessorID uuid.UUID

	rawRead   bool
	rawWrite  bool
	rawManage bool

	read   bool
	write  bool
	manage bool

	public bool
}

// NewAccessDecision derives the capabilities from the raw flags.
func NewAccessDecision(snippetID, accessorID uuid.UUID, read, write, manage, snippetPublic bool) AccessDecision {
	return AccessDecision{
		snippetID:  snippetID,
		accessorID: accessorID,
		rawRead:    read,
		rawWrite:   write,
		rawManage:  manage,
		read:       read || write || manage,
		write:      write || manage,
		manage:     manage,
		public:     snippetPublic,
	}
}

// NoPermission is the decision for an accessor with no rights on the snippet.
func NoPermission(snippetID, accessorID uuid.UUID) AccessDecision {
	return NewAccessDecision(snippetID, accessorID, false, false, false, true)
}

// ErrorPermission is returned alongside a failed lookup.
// It carries the same flags as NoPermission but zero identifiers.
func ErrorPermission() AccessDecision {
	return NewAccessDecision(uuid.Nil, uuid.Nil, false, false, false, true)
}

// SnippetID returns the evaluated snippet.
func (d AccessDecision) SnippetID() uuid.UUID { return d.snippetID }

// AccessorID returns the evaluated accessor.
func (d AccessDecision) AccessorID() uuid.UUID { return d.accessorID }

// IsErrorDecision reports whether d is the sentinel produced by a failed lookup.
func (d AccessDecision) IsErrorDecision() bool {
	return d.snippetID == uuid.Nil && d.accessorID == uuid.Nil
}

// CanRead reports the derived read capability.
func (d AccessDecision) CanRead() bool { return d.read }

// CanWrite reports the derived write capability.
func (d AccessDecision) CanWrite() bool { return d.write }

// CanManage reports the derived manage capability.
func (d AccessDecision) CanManage() bool { return d.manage }

// IsPublic reports whether the snippet is public.
func (d AccessDecision) IsPublic() bool { return d.public }

// IsPrivate reports whether the snippet is private.
func (d AccessDecision) IsPrivate() bool { return !d.public }

func (d AccessDecision) has(c Capability) bool {
	switch c {
	case CapabilityRead:
		return d.read
	case CapabilityWrite:
		return d.write
	case CapabilityManage:
		return d.manage
	default:
		return false
	}
}

// HasAny returns true if at least one of caps is held. No caps yields false.
func (d AccessDecision) HasAny(caps ...Capability) bool {
	for _, c := range caps {
		if d.has(c) {
			return true
		}
	}
	return false
}

// HasAll returns true if every one of caps is held. No caps yields true.
func (d AccessDecision) HasAll(caps ...Capability) bool {
	for _, c := range caps {
		if !d.has(c) {
			return false
		}
	}
	return true
}

// AccessControlRecord is the API shape of an access grant.
type AccessControlRecord struct {
	UserID uuid.UUID `json:"userId"`
	Read   bool      `json:"read"`
	Write  bool      `json:"write"`
	Manage bool      `json:"manage"`
}

// ToAccessControlRecord projects the accessor and the raw, underived flags.
func (d AccessDecision) ToAccessControlRecord() AccessControlRecord {
	return AccessControlRecord{
		UserID: d.accessorID,
		Read:   d.rawRead,
		Write:  d.rawWrite,
		Manage: d.rawManage,
	}
}

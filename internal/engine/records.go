package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/syncedhp/internal/store"
)

// Document layout. Indices are zero-based and contiguous.
const (
	KeyGroupCount  = "Health Bar Count"
	KeyName        = "Name"
	KeyVitality    = "Health"
	KeyMemberCount = "Player Count"
	KeyIdentity    = "UUID"
	KeyLastLogin   = "Last Login"
)

// TimestampLayout formats a member's last-transition time.
const TimestampLayout = "15:04 | 02.01.2006"

func groupPath(i int) string {
	return fmt.Sprintf("Health Bar %d", i)
}

func memberPath(group, slot int) string {
	return store.Join(groupPath(group), fmt.Sprintf("Player %d", slot))
}

// memberRecord is one persisted member slot.
type memberRecord struct {
	Name      string
	ID        uuid.UUID
	LastLogin time.Time
}

// groupRecord is one persisted group with its members.
type groupRecord struct {
	Name     string
	Vitality float64
	Members  []memberRecord
}

// records reads and writes the document layout inside one transaction.
// Every missing or unparsable value is reported as corruption.
type records struct {
	tx *store.Tx
}

func (r records) str(path string) (string, error) {
	v, ok, err := r.tx.Get(path)
	if err != nil {
		return "", corruptedCause(path, err)
	}
	if !ok {
		return "", corrupted(path, "missing")
	}
	return v, nil
}

func (r records) name(path string) (string, error) {
	v, err := r.str(path)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", corrupted(path, "empty name")
	}
	return normalizeName(v), nil
}

func (r records) count(path string) (int, error) {
	v, err := r.str(path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, corruptedCause(path, err)
	}
	if n < 0 {
		return 0, corrupted(path, "negative count %d", n)
	}
	return n, nil
}

func (r records) vitality(path string) (float64, error) {
	v, err := r.str(path)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, corruptedCause(path, err)
	}
	if f < 0 || f > MaxVitality {
		return 0, corrupted(path, "vitality %s outside [0, %s]", v, formatVitality(MaxVitality))
	}
	return f, nil
}

func (r records) groupCount() (int, error) {
	return r.count(KeyGroupCount)
}

func (r records) memberCount(group int) (int, error) {
	return r.count(store.Join(groupPath(group), KeyMemberCount))
}

func (r records) groupName(group int) (string, error) {
	return r.name(store.Join(groupPath(group), KeyName))
}

func (r records) member(group, slot int) (memberRecord, error) {
	base := memberPath(group, slot)

	name, err := r.name(store.Join(base, KeyName))
	if err != nil {
		return memberRecord{}, err
	}

	idPath := store.Join(base, KeyIdentity)
	raw, err := r.str(idPath)
	if err != nil {
		return memberRecord{}, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return memberRecord{}, corruptedCause(idPath, err)
	}

	loginPath := store.Join(base, KeyLastLogin)
	raw, err = r.str(loginPath)
	if err != nil {
		return memberRecord{}, err
	}
	login, err := time.ParseInLocation(TimestampLayout, raw, time.Local)
	if err != nil {
		return memberRecord{}, corruptedCause(loginPath, err)
	}

	return memberRecord{Name: name, ID: id, LastLogin: login}, nil
}

// group reads group i and all of its members. Entries past the member count
// are corruption: a counter must bound exactly the slots that exist.
func (r records) group(i int) (groupRecord, error) {
	name, err := r.groupName(i)
	if err != nil {
		return groupRecord{}, err
	}
	vitality, err := r.vitality(store.Join(groupPath(i), KeyVitality))
	if err != nil {
		return groupRecord{}, err
	}
	n, err := r.memberCount(i)
	if err != nil {
		return groupRecord{}, err
	}

	g := groupRecord{Name: name, Vitality: vitality, Members: make([]memberRecord, 0, n)}
	for j := 0; j < n; j++ {
		m, err := r.member(i, j)
		if err != nil {
			return groupRecord{}, err
		}
		g.Members = append(g.Members, m)
	}

	extra, err := r.tx.Exists(memberPath(i, n))
	if err != nil {
		return groupRecord{}, corruptedCause(memberPath(i, n), err)
	}
	if extra {
		return groupRecord{}, corrupted(memberPath(i, n), "slot beyond %s %d", KeyMemberCount, n)
	}
	return g, nil
}

// checkGroup verifies the stored name at index i, so an in-memory group
// is never written through a stale or tampered index.
func (r records) checkGroup(i int, name string) error {
	stored, err := r.groupName(i)
	if err != nil {
		return err
	}
	if stored != name {
		return corrupted(store.Join(groupPath(i), KeyName), "expected %q, found %q", name, stored)
	}
	return nil
}

func (r records) setCount(path string, n int) error {
	return r.tx.Set(path, strconv.Itoa(n))
}

func (r records) setVitality(group int, v float64) error {
	return r.tx.Set(store.Join(groupPath(group), KeyVitality), formatVitality(v))
}

// putGroup writes a new group record at index i with no members.
func (r records) putGroup(i int, name string, vitality float64) error {
	base := groupPath(i)
	if err := r.tx.Set(store.Join(base, KeyName), name); err != nil {
		return err
	}
	if err := r.setVitality(i, vitality); err != nil {
		return err
	}
	return r.setCount(store.Join(base, KeyMemberCount), 0)
}

// putMember writes a member record at the given slot.
func (r records) putMember(group, slot int, m memberRecord) error {
	base := memberPath(group, slot)
	if err := r.tx.Set(store.Join(base, KeyName), m.Name); err != nil {
		return err
	}
	if err := r.tx.Set(store.Join(base, KeyIdentity), m.ID.String()); err != nil {
		return err
	}
	return r.touchMember(group, slot, m.Name, m.LastLogin)
}

// touchMember rewrites the display name and timestamp of an existing slot.
func (r records) touchMember(group, slot int, name string, at time.Time) error {
	base := memberPath(group, slot)
	if err := r.tx.Set(store.Join(base, KeyName), name); err != nil {
		return err
	}
	return r.tx.Set(store.Join(base, KeyLastLogin), at.Format(TimestampLayout))
}

// compact removes the subtree at index k of a sequence and shifts every
// following entry down by one. n is the sequence length before removal.
func compact(tx *store.Tx, path func(int) string, k, n int) error {
	if err := tx.Delete(path(k)); err != nil {
		return err
	}
	for j := k + 1; j < n; j++ {
		if err := tx.Move(path(j), path(j-1)); err != nil {
			return err
		}
	}
	return nil
}

// formatVitality renders v the way the document has always stored it,
// with at least one fractional digit ("20.0", "15.5").
func formatVitality(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func normalizeName(s string) string {
	return norm.NFC.String(s)
}

func clamp(v float64) float64 {
	return max(0, min(v, MaxVitality))
}

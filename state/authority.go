package state

import (
	"bytes"
	"sort"
)

// Authority answers who may approve spends, reject spends and declare
// tips. The tipper list is the closing-threshold electorate, sorted by
// address.
type Authority interface {
	IsApprover(addr []byte) bool
	IsRejector(addr []byte) bool
	IsTipper(addr []byte) bool
	SortedTippers() [][]byte
	TipperCount() int
}

type AuthoritySet struct {
	approvers map[string]struct{}
	rejectors map[string]struct{}
	tipperSet map[string]struct{}
	tippers   [][]byte
}

func NewAuthoritySet(approvers, rejectors, tippers [][]byte) *AuthoritySet {
	a := &AuthoritySet{
		approvers: make(map[string]struct{}, len(approvers)),
		rejectors: make(map[string]struct{}, len(rejectors)),
		tipperSet: make(map[string]struct{}, len(tippers)),
	}
	for _, addr := range approvers {
		a.approvers[string(addr)] = struct{}{}
	}
	for _, addr := range rejectors {
		a.rejectors[string(addr)] = struct{}{}
	}
	for _, addr := range tippers {
		if _, ok := a.tipperSet[string(addr)]; ok {
			continue
		}
		a.tipperSet[string(addr)] = struct{}{}
		a.tippers = append(a.tippers, append([]byte{}, addr...))
	}
	sort.Slice(a.tippers, func(i, j int) bool {
		return bytes.Compare(a.tippers[i], a.tippers[j]) < 0
	})
	return a
}

func (a *AuthoritySet) IsApprover(addr []byte) bool {
	_, ok := a.approvers[string(addr)]
	return ok
}

func (a *AuthoritySet) IsRejector(addr []byte) bool {
	_, ok := a.rejectors[string(addr)]
	return ok
}

func (a *AuthoritySet) IsTipper(addr []byte) bool {
	_, ok := a.tipperSet[string(addr)]
	return ok
}

func (a *AuthoritySet) SortedTippers() [][]byte {
	return a.tippers
}

func (a *AuthoritySet) TipperCount() int {
	return len(a.tippers)
}

package rpcapi

import (
	"github.com/MotoAcidic/fluxd/registry"
)

// NodeView is the JSON shape returned for a single node, field names
// matching the wallet-facing terminology the registry's callers expect.
type NodeView struct {
	Collateral          string `json:"collateral"`
	Amount              int64  `json:"amount"`
	Tier                string `json:"tier"`
	AddedHeight         uint32 `json:"added_height"`
	ConfirmedHeight     uint32 `json:"confirmed_height"`
	LastConfirmedHeight uint32 `json:"last_confirmed_height"`
	LastPaidHeight      uint32 `json:"last_paid_height"`
	IP                  string `json:"ip"`
	Network             string `json:"network"`
	PaymentAddress      string `json:"payment_address,omitempty"`
	ActiveSince         int64  `json:"activesince,omitempty"`
	LastPaid            int64  `json:"lastpaid,omitempty"`
	Rank                int    `json:"rank,omitempty"`
}

func networkName(n registry.NetworkType) string {
	switch n {
	case registry.NetIPv4:
		return "ipv4"
	case registry.NetIPv6:
		return "ipv6"
	case registry.NetOnion:
		return "onion"
	default:
		return "unknown"
	}
}

func newNodeView(rec *registry.NodeRecord) NodeView {
	return NodeView{
		Collateral:          rec.CollateralOutpoint.String(),
		Amount:              rec.CollateralAmount,
		Tier:                rec.Tier.String(),
		AddedHeight:         rec.AddedHeight,
		ConfirmedHeight:     rec.ConfirmedHeight,
		LastConfirmedHeight: rec.LastConfirmedHeight,
		LastPaidHeight:      rec.LastPaidHeight,
		IP:                  rec.IP,
		Network:             networkName(registry.ClassifyNetwork(rec.IP)),
	}
}

// WinnerView is the JSON shape of a single tier's upcoming payee.
type WinnerView struct {
	Tier       string `json:"tier"`
	Collateral string `json:"collateral"`
	Amount     int64  `json:"amount"`
	ExpiresIn  int    `json:"expires_in,omitempty"`
}

// CountView is the JSON shape of the count() query.
type CountView struct {
	Total   int            `json:"total"`
	PerTier map[string]int `json:"tiers"`
	IPv4    int            `json:"ipv4"`
	IPv6    int            `json:"ipv6"`
	Onion   int            `json:"onion"`
}

func newCountView(c registry.Count) CountView {
	v := CountView{Total: c.Total, PerTier: make(map[string]int), IPv4: c.IPv4, IPv6: c.IPv6, Onion: c.Onion}
	for t, n := range c.PerTier {
		v.PerTier[t.String()] = n
	}
	return v
}

// StatusView is the JSON shape of the status() query for a single outpoint.
type StatusView struct {
	Tracker string    `json:"tracker"`
	Node    *NodeView `json:"node,omitempty"`
}

// ErrorView is the JSON shape of a failed request.
type ErrorView struct {
	Error string `json:"error"`
}

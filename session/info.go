package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"i4.energy/across/smscore/geoloc"
	"i4.energy/across/smscore/session/parser"
)

// ModemIdentity is the result of the four identity queries spec.md §6's
// wire table names for modem_info: AT+CGMI/+CGMM/+CGMR/+CGSN.
type ModemIdentity struct {
	Manufacturer string
	Model        string
	Revision     string
	Serial       string
}

// ModemInfo queries the modem's manufacturer, model, firmware revision and
// IMEI. Each of the four commands is issued independently, in the order
// the wire table lists them; a failure on any one of them aborts the
// whole query.
func (s *Session) ModemInfo(ctx context.Context) (ModemIdentity, error) {
	queries := []struct {
		cmd string
		set func(*ModemIdentity, string)
	}{
		{"AT+CGMI", func(id *ModemIdentity, v string) { id.Manufacturer = v }},
		{"AT+CGMM", func(id *ModemIdentity, v string) { id.Model = v }},
		{"AT+CGMR", func(id *ModemIdentity, v string) { id.Revision = v }},
		{"AT+CGSN", func(id *ModemIdentity, v string) { id.Serial = v }},
	}
	var id ModemIdentity
	for _, q := range queries {
		resp, err := s.arb.Exec(ctx, q.cmd)
		if err != nil {
			return ModemIdentity{}, s.execError(q.cmd, resp, err)
		}
		q.set(&id, strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(resp), "OK")))
	}
	return id, nil
}

// SubscriberNumber queries the SIM's own MSISDN (AT+CNUM), if the SIM
// carries one. Not every SIM has this provisioned; a modem that reports an
// empty Number still answers OK, so callers should treat an empty Number as
// "not provisioned" rather than an error.
func (s *Session) SubscriberNumber(ctx context.Context) (parser.CNUMInfo, error) {
	const cmd = "AT+CNUM"
	resp, err := s.arb.Exec(ctx, cmd)
	if err != nil {
		return parser.CNUMInfo{}, s.execError(cmd, resp, err)
	}
	num, ok := parser.ParseCNUM(firstMatchingLine(resp, "+CNUM"))
	if !ok {
		return parser.CNUMInfo{}, &ProtocolError{Command: cmd, Detail: "missing +CNUM: line"}
	}
	return num, nil
}

// NetworkInfo reports the modem's PDP contexts (CGDCONT/CGACT/CGPADDR)
// and currently registered operator (COPS).
type NetworkInfo struct {
	Operator string
	MCC      string
	MNC      string
	Contexts []ContextInfo
}

// ContextInfo merges one PDP context's definition, activation state and
// assigned address across CGDCONT/CGACT/CGPADDR.
type ContextInfo struct {
	CID     int
	Type    string
	APN     string
	Active  bool
	Address string
}

// queryCOPS sets the +COPS operator name format to format (0 == long
// alphanumeric, 2 == numeric MCC+MNC) and reads it back. The format must be
// set before every query: the modem does not remember it across AT+COPS?
// calls that didn't also set it, and the two callers of queryCOPS need two
// different formats from the same registered operator.
func (s *Session) queryCOPS(ctx context.Context, format int) (parser.COPSInfo, error) {
	setCmd := fmt.Sprintf("AT+COPS=3,%d", format)
	if resp, err := s.arb.Exec(ctx, setCmd); err != nil {
		return parser.COPSInfo{}, s.execError(setCmd, resp, err)
	}

	const queryCmd = "AT+COPS?"
	resp, err := s.arb.Exec(ctx, queryCmd)
	if err != nil {
		return parser.COPSInfo{}, s.execError(queryCmd, resp, err)
	}
	cops, ok := parser.ParseCOPS(firstMatchingLine(resp, "+COPS"))
	if !ok {
		return parser.COPSInfo{}, &ProtocolError{Command: queryCmd, Detail: "missing +COPS: line"}
	}
	return cops, nil
}

// NetworkInfo queries the operator and every defined PDP context's
// configuration, activation state and assigned address. The operator is
// read twice per spec.md §6's COPS row: once in long alphanumeric format for
// display, once in numeric format to split into MCC/MNC.
func (s *Session) NetworkInfo(ctx context.Context) (NetworkInfo, error) {
	var info NetworkInfo

	name, err := s.queryCOPS(ctx, 0)
	if err != nil {
		return NetworkInfo{}, err
	}
	info.Operator = name.Oper

	numeric, err := s.queryCOPS(ctx, 2)
	if err != nil {
		return NetworkInfo{}, err
	}
	if len(numeric.Oper) == 5 {
		info.MCC, info.MNC = numeric.Oper[:3], numeric.Oper[3:]
	}

	contexts := make(map[int]*ContextInfo)
	order := make([]int, 0)
	ensure := func(cid int) *ContextInfo {
		c, ok := contexts[cid]
		if !ok {
			c = &ContextInfo{CID: cid}
			contexts[cid] = c
			order = append(order, cid)
		}
		return c
	}

	const defCmd = "AT+CGDCONT?"
	resp, err := s.arb.Exec(ctx, defCmd)
	if err != nil {
		return NetworkInfo{}, s.execError(defCmd, resp, err)
	}
	for _, line := range strings.Split(resp, "\n") {
		if def, ok := parser.ParseCGDCONT(strings.TrimSpace(line)); ok {
			c := ensure(def.CID)
			c.Type, c.APN = def.Type, def.APN
		}
	}

	const actCmd = "AT+CGACT?"
	resp, err = s.arb.Exec(ctx, actCmd)
	if err != nil {
		return NetworkInfo{}, s.execError(actCmd, resp, err)
	}
	for _, line := range strings.Split(resp, "\n") {
		if act, ok := parser.ParseCGACT(strings.TrimSpace(line)); ok {
			ensure(act.CID).Active = act.Active
		}
	}

	const addrCmd = "AT+CGPADDR"
	resp, err = s.arb.Exec(ctx, addrCmd)
	if err != nil {
		return NetworkInfo{}, s.execError(addrCmd, resp, err)
	}
	for _, line := range strings.Split(resp, "\n") {
		if addr, ok := parser.ParseCGPADDR(strings.TrimSpace(line)); ok {
			ensure(addr.CID).Address = addr.Address
		}
	}

	for _, cid := range order {
		info.Contexts = append(info.Contexts, *contexts[cid])
	}
	return info, nil
}

// SignalQuality is the dBm-mapped result of an AT+CSQ query. RSSI is nil
// when the raw index is outside 0..31 (notably the "not known or not
// detectable" sentinel 99). BER is always the raw value, including 99.
type SignalQuality struct {
	RawRSSI int
	RSSI    *int
	RawBER  int
	BER     *int
}

// SignalQuality queries AT+CSQ and maps the raw RSSI index to dBm per
// spec.md §4.4.
func (s *Session) SignalQuality(ctx context.Context) (SignalQuality, error) {
	const cmd = "AT+CSQ"
	resp, err := s.arb.Exec(ctx, cmd)
	if err != nil {
		return SignalQuality{}, s.execError(cmd, resp, err)
	}
	reading, ok := parser.ParseCSQ(firstMatchingLine(resp, "+CSQ"))
	if !ok {
		return SignalQuality{}, &ProtocolError{Command: cmd, Detail: "missing +CSQ: line"}
	}
	return SignalQuality{
		RawRSSI: reading.RawRSSI,
		RSSI:    parser.MapRSSI(reading.RawRSSI),
		RawBER:  reading.BER,
		BER:     parser.MapBER(reading.BER),
	}, nil
}

// MessageStorage reports the three storage areas' usage and capacity
// (AT+CPMS?).
func (s *Session) MessageStorage(ctx context.Context) (parser.CPMSStatus, error) {
	const cmd = "AT+CPMS?"
	resp, err := s.arb.Exec(ctx, cmd)
	if err != nil {
		return parser.CPMSStatus{}, s.execError(cmd, resp, err)
	}
	status, ok := parser.ParseCPMSStatus(firstMatchingLine(resp, "+CPMS"))
	if !ok {
		return parser.CPMSStatus{}, &ProtocolError{Command: cmd, Detail: "+CPMS: line missing required 9 fields"}
	}
	return status, nil
}

// SetMessageStorage selects the three storage areas used for reading,
// writing/sending and new-message notification (AT+CPMS=mem1,mem2,mem3).
func (s *Session) SetMessageStorage(ctx context.Context, mem1, mem2, mem3 string) error {
	cmd := fmt.Sprintf("AT+CPMS=%q,%q,%q", mem1, mem2, mem3)
	resp, err := s.arb.Exec(ctx, cmd)
	if err != nil {
		return s.execError(cmd, resp, err)
	}
	return nil
}

// LocationInfo is the result of LocationInfo: the LAC/CID the network
// reports, plus whatever the geolocation collaborator resolved from it, if
// one was configured.
type LocationInfo struct {
	LAC, CID int
	Address  json.RawMessage
}

// LocationInfo enables location reporting (AT+CREG=2), queries it
// (AT+CREG?) for the serving cell's LAC/CID, and — if a geoloc.Client was
// configured via WithGeolocation — resolves an approximate address from
// those identifiers plus the operator's MCC/MNC.
func (s *Session) LocationInfo(ctx context.Context) (LocationInfo, error) {
	const enableCmd = "AT+CREG=2"
	if resp, err := s.arb.Exec(ctx, enableCmd); err != nil {
		return LocationInfo{}, s.execError(enableCmd, resp, err)
	}

	const queryCmd = "AT+CREG?"
	resp, err := s.arb.Exec(ctx, queryCmd)
	if err != nil {
		return LocationInfo{}, s.execError(queryCmd, resp, err)
	}
	creg, ok := parser.ParseCREG(firstMatchingLine(resp, "+CREG"))
	if !ok || !creg.HasLocation {
		return LocationInfo{}, &ProtocolError{Command: queryCmd, Detail: "no LAC/CID reported"}
	}
	info := LocationInfo{LAC: creg.LAC, CID: creg.CID}

	if s.geo == nil {
		return info, nil
	}

	net, err := s.NetworkInfo(ctx)
	if err != nil || net.MCC == "" {
		return info, nil
	}
	addr, err := s.geo.Locate(ctx, net.MCC, net.MNC, []geoloc.Cell{{LAC: info.LAC, CID: info.CID}})
	if err != nil {
		s.logger.Warnw("geolocation lookup failed", "error", err)
		return info, nil
	}
	info.Address = addr
	return info, nil
}

// firstMatchingLine returns the first line of resp whose trimmed text
// begins with tag, or "" if none does.
func firstMatchingLine(resp, tag string) string {
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, tag) {
			return line
		}
	}
	return ""
}

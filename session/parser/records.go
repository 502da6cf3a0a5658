package parser

// CMGLHeader is a parsed "+CMGL: <index>,<stat>,<addr>,<len>" header line.
// Addr is empty when the modem omits it (PDU mode always omits it; kept
// for parity with the wire table in spec.md §6).
type CMGLHeader struct {
	Index  int
	Stat   int
	Addr   string
	Length int
}

// ParseCMGLHeader parses a +CMGL header line.
func ParseCMGLHeader(line string) (CMGLHeader, bool) {
	fields, ok := FieldsFor(line, "+CMGL")
	if !ok || len(fields) < 4 {
		return CMGLHeader{}, false
	}
	return CMGLHeader{
		Index:  atoiOr(fields[0], -1),
		Stat:   atoiOr(fields[1], -1),
		Addr:   fields[2],
		Length: atoiOr(fields[3], 0),
	}, true
}

// CMGRHeader is a parsed "+CMGR: <stat>,<addr>,<len>" header line.
type CMGRHeader struct {
	Stat   int
	Addr   string
	Length int
}

// ParseCMGRHeader parses a +CMGR header line.
func ParseCMGRHeader(line string) (CMGRHeader, bool) {
	fields, ok := FieldsFor(line, "+CMGR")
	if !ok || len(fields) < 3 {
		return CMGRHeader{}, false
	}
	return CMGRHeader{
		Stat:   atoiOr(fields[0], -1),
		Addr:   fields[1],
		Length: atoiOr(fields[2], 0),
	}, true
}

// CREGStatus is a parsed "+CREG: <n>,<stat>,<lac_hex>,<cid_hex>,..." line.
type CREGStatus struct {
	N    int
	Stat int
	LAC  int
	CID  int
	// HasLocation is true when lac/cid fields were present (the modem
	// reports them only once network-registered with location reporting
	// enabled via AT+CREG=2).
	HasLocation bool
}

// ParseCREG parses a +CREG status line.
func ParseCREG(line string) (CREGStatus, bool) {
	fields, ok := FieldsFor(line, "+CREG")
	if !ok || len(fields) < 2 {
		return CREGStatus{}, false
	}
	st := CREGStatus{
		N:    atoiOr(fields[0], -1),
		Stat: atoiOr(fields[1], -1),
	}
	if len(fields) >= 4 {
		st.LAC = hexToIntOr(fields[2], 0)
		st.CID = hexToIntOr(fields[3], 0)
		st.HasLocation = true
	}
	return st, true
}

// COPSInfo is a parsed "+COPS: <mode>,<format>,<oper>,..." line.
type COPSInfo struct {
	Mode   int
	Format int
	Oper   string
}

// ParseCOPS parses a +COPS line.
func ParseCOPS(line string) (COPSInfo, bool) {
	fields, ok := FieldsFor(line, "+COPS")
	if !ok || len(fields) < 1 {
		return COPSInfo{}, false
	}
	info := COPSInfo{Mode: atoiOr(fields[0], -1)}
	if len(fields) >= 3 {
		info.Format = atoiOr(fields[1], -1)
		info.Oper = fields[2]
	}
	return info, true
}

// CPMSStatus is a parsed nine-field "+CPMS: memr,usedr,totalr,memw,usedw,
// totalw,mems,useds,totals" status line (AT+CPMS? form).
type CPMSStatus struct {
	Read      string
	ReadUsed  int
	ReadTotal int

	Write      string
	WriteUsed  int
	WriteTotal int

	Store      string
	StoreUsed  int
	StoreTotal int
}

// ParseCPMSStatus parses the query form of +CPMS (numeric usage/capacity
// triples for read/write/store storage areas), per spec.md §6. It reports
// ok=false if fewer than 9 fields are present — callers surface this as a
// ProtocolError.
func ParseCPMSStatus(line string) (CPMSStatus, bool) {
	fields, ok := FieldsFor(line, "+CPMS")
	if !ok || len(fields) < 9 {
		return CPMSStatus{}, false
	}
	n := func(i int) int { return atoiOr(fields[i], 0) }
	return CPMSStatus{
		Read: fields[0], ReadUsed: n(1), ReadTotal: n(2),
		Write: fields[3], WriteUsed: n(4), WriteTotal: n(5),
		Store: fields[6], StoreUsed: n(7), StoreTotal: n(8),
	}, true
}

// CSQReading is a parsed "+CSQ: <rssi>,<ber>" line, with raw (unmapped)
// values; session.SignalQuality applies the dBm mapping.
type CSQReading struct {
	RawRSSI int
	BER     int
}

// ParseCSQ parses a +CSQ line.
func ParseCSQ(line string) (CSQReading, bool) {
	fields, ok := FieldsFor(line, "+CSQ")
	if !ok || len(fields) < 2 {
		return CSQReading{}, false
	}
	return CSQReading{
		RawRSSI: atoiOr(fields[0], 99),
		BER:     atoiOr(fields[1], 99),
	}, true
}

// MapRSSI implements the +CSQ rssi mapping of spec.md §4.4: 0 is the
// floor, 1..30 scale linearly, 31 is the ceiling (an explicit equality
// check, not a fallthrough of the 1..30 range), and anything else —
// notably 99, "not known or not detectable" — has no meaningful dBm value.
func MapRSSI(raw int) *int {
	var v int
	switch {
	case raw == 0:
		v = -113
	case raw >= 1 && raw <= 30:
		v = -113 + 2*raw
	case raw == 31:
		v = -51
	default:
		return nil
	}
	return &v
}

// MapBER returns ber verbatim, including the "not known or not detectable"
// sentinel 99 — unlike RSSI, BER has no dBm conversion to apply, so the raw
// index is the reported value per spec.md §4.4/§8. The returned pointer is
// never nil; ParseCSQ reports a missing or unparseable BER field as 99.
func MapBER(ber int) *int {
	v := ber
	return &v
}

// CGDCONTContext is one parsed "+CGDCONT: <cid>,<type>,<apn>,..." row.
type CGDCONTContext struct {
	CID  int
	Type string
	APN  string
}

// ParseCGDCONT parses a +CGDCONT row.
func ParseCGDCONT(line string) (CGDCONTContext, bool) {
	fields, ok := FieldsFor(line, "+CGDCONT")
	if !ok || len(fields) < 3 {
		return CGDCONTContext{}, false
	}
	return CGDCONTContext{
		CID:  atoiOr(fields[0], -1),
		Type: fields[1],
		APN:  fields[2],
	}, true
}

// CGACTContext is one parsed "+CGACT: <cid>,<0|1>" row.
type CGACTContext struct {
	CID    int
	Active bool
}

// ParseCGACT parses a +CGACT row.
func ParseCGACT(line string) (CGACTContext, bool) {
	fields, ok := FieldsFor(line, "+CGACT")
	if !ok || len(fields) < 2 {
		return CGACTContext{}, false
	}
	return CGACTContext{
		CID:    atoiOr(fields[0], -1),
		Active: atoiOr(fields[1], 0) == 1,
	}, true
}

// CGPADDRContext is one parsed "+CGPADDR: <cid>,<addr>" row.
type CGPADDRContext struct {
	CID     int
	Address string
}

// ParseCGPADDR parses a +CGPADDR row.
func ParseCGPADDR(line string) (CGPADDRContext, bool) {
	fields, ok := FieldsFor(line, "+CGPADDR")
	if !ok || len(fields) < 2 {
		return CGPADDRContext{}, false
	}
	return CGPADDRContext{
		CID:     atoiOr(fields[0], -1),
		Address: fields[1],
	}, true
}

// CNUMInfo is a parsed "+CNUM: <alpha>,<number>,<type>" line.
type CNUMInfo struct {
	Alpha  string
	Number string
	Type   int
}

// ParseCNUM parses a +CNUM line.
func ParseCNUM(line string) (CNUMInfo, bool) {
	fields, ok := FieldsFor(line, "+CNUM")
	if !ok || len(fields) < 3 {
		return CNUMInfo{}, false
	}
	return CNUMInfo{
		Alpha:  fields[0],
		Number: fields[1],
		Type:   atoiOr(fields[2], -1),
	}, true
}

// ParseCMGSResult parses a "+CMGS: <mr>" result line, returning the
// message reference.
func ParseCMGSResult(line string) (int, bool) {
	fields, ok := FieldsFor(line, "+CMGS")
	if !ok || len(fields) < 1 {
		return 0, false
	}
	return atoiOr(fields[0], -1), true
}

// ParseCMGWResult parses a "+CMGW: <idx>" result line, returning the
// storage index the message was written to.
func ParseCMGWResult(line string) (int, bool) {
	fields, ok := FieldsFor(line, "+CMGW")
	if !ok || len(fields) < 1 {
		return 0, false
	}
	return atoiOr(fields[0], -1), true
}

package parser_test

import (
	"testing"

	"i4.energy/across/smscore/session/parser"
)

func TestSplitFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"bare", "1,2,3", []string{"1", "2", "3"}},
		{"quoted with comma", `"SM",1,"a,b"`, []string{"SM", "1", "a,b"}},
		{"trailing empty field", "1,2,", []string{"1", "2", ""}},
		{"single field", "OK", []string{"OK"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parser.SplitFields(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitFields(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseCMGLHeader(t *testing.T) {
	h, ok := parser.ParseCMGLHeader(`+CMGL: 3,1,,157`)
	if !ok {
		t.Fatal("ParseCMGLHeader() ok = false")
	}
	if h.Index != 3 || h.Stat != 1 || h.Length != 157 {
		t.Errorf("ParseCMGLHeader() = %+v", h)
	}

	if _, ok := parser.ParseCMGLHeader("+CMGR: 1,,10"); ok {
		t.Error("ParseCMGLHeader() matched a non-CMGL line")
	}
}

func TestParseCREGWithLocation(t *testing.T) {
	st, ok := parser.ParseCREG(`+CREG: 2,1,"1110","2F9E051"`)
	if !ok {
		t.Fatal("ParseCREG() ok = false")
	}
	if st.LAC != 0x1110 {
		t.Errorf("LAC = %d (0x%X), want %d", st.LAC, st.LAC, 0x1110)
	}
	if st.CID != 0x2F9E051 {
		t.Errorf("CID = %d (0x%X), want %d", st.CID, st.CID, 0x2F9E051)
	}
}

func TestParseCSQAndMapRSSI(t *testing.T) {
	tests := []struct {
		line    string
		rssi99  bool // true if MapRSSI should return nil
		wantDBm int
	}{
		{"+CSQ: 0,99", false, -113},
		{"+CSQ: 24,99", false, -65},
		{"+CSQ: 31,0", false, -51},
		{"+CSQ: 99,99", true, 0},
	}
	for _, tt := range tests {
		reading, ok := parser.ParseCSQ(tt.line)
		if !ok {
			t.Fatalf("ParseCSQ(%q) ok = false", tt.line)
		}
		dbm := parser.MapRSSI(reading.RawRSSI)
		if tt.rssi99 {
			if dbm != nil {
				t.Errorf("MapRSSI(%d) = %v, want nil", reading.RawRSSI, *dbm)
			}
			continue
		}
		if dbm == nil || *dbm != tt.wantDBm {
			t.Errorf("MapRSSI(%d) = %v, want %d", reading.RawRSSI, dbm, tt.wantDBm)
		}
	}

	if ber := parser.MapBER(99); ber == nil || *ber != 99 {
		t.Errorf("MapBER(99) = %v, want 99", ber)
	}
	if ber := parser.MapBER(0); ber == nil || *ber != 0 {
		t.Errorf("MapBER(0) = %v, want 0", ber)
	}
}

func TestParseCPMSStatusRequiresNineFields(t *testing.T) {
	if _, ok := parser.ParseCPMSStatus(`+CPMS: "SM",1,20`); ok {
		t.Error("ParseCPMSStatus() should reject fewer than 9 fields")
	}
	st, ok := parser.ParseCPMSStatus(`+CPMS: "SM",1,20,"SM",1,20,"SM",1,20`)
	if !ok {
		t.Fatal("ParseCPMSStatus() ok = false")
	}
	if st.ReadTotal != 20 || st.WriteTotal != 20 || st.StoreTotal != 20 {
		t.Errorf("ParseCPMSStatus() = %+v", st)
	}
}

func TestParseCNUM(t *testing.T) {
	num, ok := parser.ParseCNUM(`+CNUM: "Self","+15551234567",129`)
	if !ok {
		t.Fatal("ParseCNUM() ok = false")
	}
	if num.Alpha != "Self" || num.Number != "+15551234567" || num.Type != 129 {
		t.Errorf("ParseCNUM() = %+v", num)
	}
	if _, ok := parser.ParseCNUM(`+CNUM: "Self"`); ok {
		t.Error("ParseCNUM() should reject fewer than 3 fields")
	}
}

func TestParseCMGSAndCMGWResults(t *testing.T) {
	mr, ok := parser.ParseCMGSResult("+CMGS: 42")
	if !ok || mr != 42 {
		t.Errorf("ParseCMGSResult() = (%d, %v), want (42, true)", mr, ok)
	}
	idx, ok := parser.ParseCMGWResult("+CMGW: 7")
	if !ok || idx != 7 {
		t.Errorf("ParseCMGWResult() = (%d, %v), want (7, true)", idx, ok)
	}
}

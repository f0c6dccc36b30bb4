package filter

import "testing"

func TestMarshalJSONOrdersTagsAfterNamedFields(t *testing.T) {
	limit := 10
	f := ReqFilter{
		Authors: []string{"abcd"},
		Kinds:   []uint16{1, 7},
		Limit:   &limit,
		Tags:    map[string][]string{"e": {"deadbeef"}},
	}
	got, err := f.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"authors":["abcd"],"kinds":[1,7],"limit":10,"#e":["deadbeef"]}`
	if string(got) != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestMarshalJSONOmitsUnsetFields(t *testing.T) {
	f := ReqFilter{Kinds: []uint16{1}}
	got, err := f.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"kinds":[1]}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestUnmarshalJSONRoundTripsTags(t *testing.T) {
	raw := []byte(`{"authors":["abcd"],"kinds":[1,7],"limit":10,"#e":["deadbeef"]}`)
	var f ReqFilter
	if err := f.UnmarshalJSON(raw); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if len(f.Authors) != 1 || f.Authors[0] != "abcd" {
		t.Fatalf("authors = %v", f.Authors)
	}
	if f.Limit == nil || *f.Limit != 10 {
		t.Fatalf("limit = %v", f.Limit)
	}
	if got := f.Tags["e"]; len(got) != 1 || got[0] != "deadbeef" {
		t.Fatalf("#e tag = %v", got)
	}
}

func TestReqFrameEncodesMultipleFilters(t *testing.T) {
	got, err := ReqFrame("sub1", ReqFilter{Kinds: []uint16{1}}, ReqFilter{Kinds: []uint16{7}})
	if err != nil {
		t.Fatalf("ReqFrame: %v", err)
	}
	want := `["REQ","sub1",{"kinds":[1]},{"kinds":[7]}]`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestCloseFrame(t *testing.T) {
	got, err := CloseFrame("sub1")
	if err != nil {
		t.Fatalf("CloseFrame: %v", err)
	}
	want := `["CLOSE","sub1"]`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

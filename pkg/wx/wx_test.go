package wx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleResponse = `No errors
No warnings
2 ms
data source=metars
1 results
raw_text,station_id,observation_time,latitude,longitude
KJFK 241651Z 18012KT 10SM FEW250 24/12 A3012,KJFK,2026-08-24T16:51:00Z,40.64,-73.78
`

func TestFetchMETAR(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleResponse)
	}))
	defer server.Close()

	svc := New(server.URL + "/?station=")

	metar, err := svc.fetch("KJFK")
	if err != nil {
		t.Fatalf("Expected a METAR, got error: %v", err)
	}
	want := "KJFK 241651Z 18012KT 10SM FEW250 24/12 A3012"
	if metar != want {
		t.Errorf("Expected %q, got %q", want, metar)
	}
}

func TestFetchMETARNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "No errors\nNo warnings\n1 ms\ndata source=metars\n0 results\nraw_text,station_id\n")
	}))
	defer server.Close()

	svc := New(server.URL + "/?station=")
	if _, err := svc.fetch("ZZZZ"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestServiceRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleResponse)
	}))
	defer server.Close()

	svc := New(server.URL + "/?station=")
	svc.Run()
	defer svc.Stop()

	svc.Request("KJFK")

	deadline := time.Now().Add(5 * time.Second)
	for {
		if result, ok := svc.Poll(); ok {
			if result.Err != nil {
				t.Fatalf("Expected success, got %v", result.Err)
			}
			if result.Station != "KJFK" {
				t.Errorf("Expected station KJFK, got %q", result.Station)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for weather result")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

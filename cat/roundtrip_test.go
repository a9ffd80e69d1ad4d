package cat_test

import (
	"testing"

	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/set"
	"github.com/reddit/crossprocess.go/txn"
)

func TestRoundTrip(t *testing.T) {
	trusted := set.Int64SliceToSet([]int64{1, 12345})
	newApp := func(id, name string) *txn.Transaction {
		return txn.New(txn.Args{
			Reply: &txn.ConnectReply{
				EncodingKey:       encodingKey,
				CrossProcessID:    id,
				TrustedAccountIDs: trusted,
			},
			Options: *allEnabled(),
			AppName: "app",
			Name:    name,
		})
	}
	client := newApp("1#1", "WebTransaction/Go/client")
	external := newApp("12345#2", "WebTransaction/Go/external")

	id, transaction, err := cat.OutboundHeaders(client)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.SetInbound(external, id, transaction); err != nil {
		t.Fatal(err)
	}
	got := external.CAT()
	if got.InboundID != "1#1" {
		t.Errorf("InboundID got %q, want %q", got.InboundID, "1#1")
	}
	if got.InboundGUID != client.GUID() || got.TripID != client.GUID() {
		t.Errorf("Expected guid and trip id %q, got %+v", client.GUID(), got)
	}
	wantHash, err := cat.PathHash("app", "WebTransaction/Go/client", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.ReferringPathHash != wantHash {
		t.Errorf("ReferringPathHash got %q, want %q", got.ReferringPathHash, wantHash)
	}

	response, ok := cat.BuildInboundResponse(external, 42)
	if !ok {
		t.Fatal("Expected a response header")
	}
	appData, err := cat.DecodeAppData(response, encodingKey, client.ConnectReply().TrustedAccountIDs)
	if err != nil {
		t.Fatal(err)
	}
	if appData.CrossProcessID != "12345#2" {
		t.Errorf("CrossProcessID got %q", appData.CrossProcessID)
	}
	if appData.TransactionName != "WebTransaction/Go/external" {
		t.Errorf("TransactionName got %q", appData.TransactionName)
	}
	if appData.GUID != external.GUID() {
		t.Errorf("GUID got %q, want %q", appData.GUID, external.GUID())
	}
	if appData.ContentLength != 42 {
		t.Errorf("ContentLength got %d", appData.ContentLength)
	}
}

package wire

import (
	"testing"

	"github.com/zenoh-pico/pico/internal/domain/model"
)

func TestEnvelopeRoundTripData(t *testing.T) {
	zid, err := model.NewZenohId()
	if err != nil {
		t.Fatalf("NewZenohId: %v", err)
	}
	env := Envelope{
		Kind: KindData,
		Data: &DataBody{
			KeyExpr: model.FromString("demo/sensor/temp"),
			Payload: []byte("21.5"),
			Kind:    model.SampleKindPut,
			QoS:     model.DefaultQoS,
		},
	}
	_ = zid

	b, err := Encode(env)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Kind != KindData {
		t.Fatalf("Kind = %v, want %v", got.Kind, KindData)
	}
	if got.Data == nil || string(got.Data.Payload) != "21.5" {
		t.Fatalf("Data = %+v", got.Data)
	}
	if got.Data.KeyExpr.Suffix != "demo/sensor/temp" {
		t.Fatalf("KeyExpr = %+v", got.Data.KeyExpr)
	}
}

func TestEnvelopeRoundTripQueryAndReply(t *testing.T) {
	token, err := model.NewZenohId()
	if err != nil {
		t.Fatalf("NewZenohId: %v", err)
	}
	q := Envelope{
		Kind: KindQuery,
		Query: &QueryBody{
			Token:         token,
			KeyExpr:       model.FromString("demo/**"),
			Parameters:    "_time=[now(),)",
			Target:        model.QueryTargetAll,
			Consolidation: model.ConsolidationAuto,
		},
	}
	b, err := Encode(q)
	if err != nil {
		t.Fatalf("Encode query: %v", err)
	}
	gotQ, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode query: %v", err)
	}
	if gotQ.Query == nil || gotQ.Query.Token != token {
		t.Fatalf("Query.Token = %+v, want %v", gotQ.Query, token)
	}

	r := Envelope{
		Kind: KindReply,
		Reply: &ReplyBody{
			Token: token,
			Ok:    true,
			Data: DataBody{
				KeyExpr: model.FromString("demo/sensor/temp"),
				Payload: []byte("21.5"),
			},
		},
	}
	b2, err := Encode(r)
	if err != nil {
		t.Fatalf("Encode reply: %v", err)
	}
	gotR, err := Decode(b2)
	if err != nil {
		t.Fatalf("Decode reply: %v", err)
	}
	if gotR.Reply == nil || !gotR.Reply.Ok || gotR.Reply.Token != token {
		t.Fatalf("Reply = %+v", gotR.Reply)
	}
}

func TestEnvelopeRoundTripDeclareUndeclareJoin(t *testing.T) {
	zid, err := model.NewZenohId()
	if err != nil {
		t.Fatalf("NewZenohId: %v", err)
	}

	d := Envelope{Kind: KindDeclare, Declare: &DeclareBody{
		Entity:     EntitySubscriber,
		ResourceId: 7,
		KeyExpr:    model.FromString("demo/**"),
	}}
	b, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode declare: %v", err)
	}
	gotD, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode declare: %v", err)
	}
	if gotD.Declare == nil || gotD.Declare.ResourceId != 7 {
		t.Fatalf("Declare = %+v", gotD.Declare)
	}

	u := Envelope{Kind: KindUndeclare, Undeclare: &UndeclareBody{Entity: EntitySubscriber, ResourceId: 7}}
	b2, err := Encode(u)
	if err != nil {
		t.Fatalf("Encode undeclare: %v", err)
	}
	gotU, err := Decode(b2)
	if err != nil {
		t.Fatalf("Decode undeclare: %v", err)
	}
	if gotU.Undeclare == nil || gotU.Undeclare.ResourceId != 7 {
		t.Fatalf("Undeclare = %+v", gotU.Undeclare)
	}

	j := Envelope{Kind: KindJoin, Join: &JoinBody{Zid: zid, WhatAmI: model.WhatAmIPeer, LeaseNanos: int64(10e9)}}
	b3, err := Encode(j)
	if err != nil {
		t.Fatalf("Encode join: %v", err)
	}
	gotJ, err := Decode(b3)
	if err != nil {
		t.Fatalf("Decode join: %v", err)
	}
	if gotJ.Join == nil || gotJ.Join.Zid != zid {
		t.Fatalf("Join = %+v", gotJ.Join)
	}
}

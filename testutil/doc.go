// Package testutil provides testing utilities for pipelines and tasks.
//
// # Overview
//
// MockNode is a node.Node whose open/close errors and dispatch/process
// behaviour are scripted by the test. Every call is counted and, when an
// EventLog is attached, recorded in order:
//
//	log := &testutil.EventLog{}
//	src := testutil.NewCountingSource("src", 5, nil, log)
//	inc := testutil.NewIncrementer("inc", log)
//	sink := testutil.NewRecorder("sink", log)
//
//	p := pipeline.New("test")
//	p.MustAddNode(src).MustAddNode(sink).MustAddNode(inc)
//	require.NoError(t, p.Start(ctx))
//	testutil.WaitForFinish(t, p, time.Second)
//
//	last, _ := sink.Last() // 5
//
// Results builds a step function that replays a fixed sequence of result
// codes, which is handy for fold and retry tests.
package testutil

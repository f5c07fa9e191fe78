package blec_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Catchawink/blec/internal/testutils"
	"github.com/Catchawink/blec/pkg/blec"
)

type DiscoverTestSuite struct {
	suite.Suite

	adapter *testutils.MockAdapter
	handler *blec.Handler
}

func TestDiscoverSuite(t *testing.T) {
	suite.Run(t, new(DiscoverTestSuite))
}

func (s *DiscoverTestSuite) SetupTest() {
	s.adapter = testutils.NewMockAdapter()
	s.adapter.AddPeripheral(testutils.NewPeripheralBuilder(addr2).WithRSSI(-70).Build())
	s.adapter.AddPeripheral(testutils.NewPeripheralBuilder(addr1).WithRSSI(-60).Build())
	s.handler = blec.NewWithAdapter(s.adapter, testConfig(), testLogger())
}

func (s *DiscoverTestSuite) TestZeroTimeout() {
	// GOAL: Verify a zero timeout performs no polls but still starts and
	// stops the scan
	//
	// TEST SCENARIO: Discover(nil, 0) → empty result → scan started and
	// stopped exactly once

	devices, err := s.handler.Discover(context.Background(), nil, 0)

	s.Require().NoError(err, "zero-timeout discovery MUST succeed")
	s.Assert().Empty(devices, "MUST return no devices")
	s.Assert().Equal(1, s.adapter.StartCount(), "scan MUST have started")
	s.Assert().Equal(1, s.adapter.StopCount(), "scan MUST have stopped")
	s.Assert().False(s.adapter.Scanning(), "scan MUST NOT be left running")
}

func (s *DiscoverTestSuite) TestSinkBatches() {
	// GOAL: Verify sink batches are non-empty, sorted and free of
	// duplicate addresses
	//
	// TEST SCENARIO: Discover with a sink over several polls → every
	// batch sorted ascending, no duplicates, final snapshot matches

	var batches [][]blec.Device
	sink := func(devices []blec.Device) error {
		batches = append(batches, devices)
		return nil
	}

	devices, err := s.handler.Discover(context.Background(), sink, 50*time.Millisecond)

	s.Require().NoError(err)
	s.Require().NotEmpty(batches, "at least one batch MUST have been published")
	for _, batch := range batches {
		s.Require().NotEmpty(batch, "batches MUST never be empty")
		seen := make(map[string]bool)
		for i, d := range batch {
			s.Assert().False(seen[d.Address], "batch MUST NOT contain duplicate addresses")
			seen[d.Address] = true
			if i > 0 {
				s.Assert().Less(batch[i-1].Address, d.Address, "batch MUST be sorted ascending by address")
			}
		}
	}
	s.Assert().Equal(batches[len(batches)-1], devices, "final snapshot MUST equal the last batch")
}

func (s *DiscoverTestSuite) TestSinkErrorSurfaces() {
	// GOAL: Verify a sink failure aborts the scan as SendingDevices and
	// the scan is still stopped
	//
	// TEST SCENARIO: Sink returns an error → Discover fails with
	// SendingDevicesError wrapping it → StopScan was called

	sinkErr := errors.New("receiver gone")
	sink := func([]blec.Device) error { return sinkErr }

	_, err := s.handler.Discover(context.Background(), sink, 50*time.Millisecond)

	var sending *blec.SendingDevicesError
	s.Require().ErrorAs(err, &sending, "MUST fail with SendingDevicesError")
	s.Assert().ErrorIs(err, sinkErr, "MUST wrap the sink error")
	s.Assert().False(s.adapter.Scanning(), "scan MUST be stopped on the error path")
}

func (s *DiscoverTestSuite) TestChanSinkClosedChannel() {
	// GOAL: Verify ChanSink reports a closed channel as an error instead
	// of panicking

	ch := make(chan []blec.Device)
	close(ch)
	sink := blec.ChanSink(ch)

	err := sink([]blec.Device{{Address: addr1}})

	s.Require().Error(err, "closed channel MUST surface as an error")
}

func (s *DiscoverTestSuite) TestStartScanErrorSurfaces() {
	// GOAL: Verify adapter start failures are wrapped as adapter errors

	s.adapter.StartScanErr = errors.New("hci down")

	_, err := s.handler.Discover(context.Background(), nil, 50*time.Millisecond)

	var adapterErr *blec.AdapterError
	s.Require().ErrorAs(err, &adapterErr, "MUST fail with AdapterError")
	s.Assert().Equal("start_scan", adapterErr.Op)
}

func (s *DiscoverTestSuite) TestRescanDropsStaleEntries() {
	// GOAL: Verify the registry is cleared at scan start so entries from
	// a prior scan cannot satisfy later connects
	//
	// TEST SCENARIO: Discover sees two peripherals; one goes out of
	// range; Discover again → only one device returned and connecting to
	// the vanished address fails UnknownPeripheral without rescanning

	ctx := context.Background()
	devices, err := s.handler.Discover(ctx, nil, 30*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Len(devices, 2)

	s.adapter.RemovePeripheral(addr2)

	devices, err = s.handler.Discover(ctx, nil, 30*time.Millisecond)
	s.Require().NoError(err)
	s.Require().Len(devices, 1, "vanished peripheral MUST NOT be reported")
	s.Assert().Equal(addr1, devices[0].Address)

	err = s.handler.Connect(ctx, addr2, heartRate, []string{charHRM}, nil)
	var unknown *blec.UnknownPeripheralError
	s.Require().ErrorAs(err, &unknown, "stale entry MUST NOT satisfy a connect")
}

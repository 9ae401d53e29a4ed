package schema

import (
	"fmt"

	"snifferconfig/internal/domain"
)

var (
	boolKind   = domain.Kinds(domain.KindBool)
	intKind    = domain.Kinds(domain.KindInt)
	stringKind = domain.Kinds(domain.KindString)
	numberKind = domain.Kinds(domain.KindFloat, domain.KindInt)
)

// snifferChannels is the number of declared rf.channels slots.
const snifferChannels = 2

// Default returns the sni5gect sniffer schema.
// Params: none.
// Returns: schema tolerating absent keys and rejecting undeclared ones.
func Default() *Schema {
	fields := []Field{
		{Key: "id", Accept: stringKind},

		{Key: "cell.band", Accept: intKind},
		{Key: "cell.nof_prb", Accept: intKind},
		{Key: "cell.scs_common", Accept: intKind},
		{Key: "cell.scs_ssb", Accept: intKind},
		{Key: "cell.ssb_period_ms", Accept: intKind},
		{Key: "cell.dl_arfcn", Accept: intKind},
		{Key: "cell.ssb_arfcn", Accept: intKind},

		{Key: "source.source_type", Accept: stringKind},
		{Key: "source.source_params", Accept: stringKind},

		{Key: "enable_recorder", Accept: boolKind},
		{Key: "pcap_folder", Accept: stringKind},

		{Key: "rf.sample_rate", Accept: numberKind},
		{Key: "rf.num_channels", Accept: intKind},
		{Key: "rf.uplink_cfo", Accept: numberKind},
		{Key: "rf.downlink_cfo", Accept: numberKind},
		{Key: "rf.padding.front_padding", Accept: intKind},
		{Key: "rf.padding.back_padding", Accept: intKind},
	}
	for i := 0; i < snifferChannels; i++ {
		fields = append(fields, channelFields(i)...)
	}

	s, err := New(fields, Options{})
	if err != nil {
		panic(fmt.Sprintf("default sniffer schema: %v", err))
	}
	return s
}

func channelFields(index int) []Field {
	prefix := fmt.Sprintf("rf.channels[%d].", index)
	return []Field{
		{Key: prefix + "rx_frequency", Accept: numberKind},
		{Key: prefix + "tx_frequency", Accept: numberKind},
		{Key: prefix + "rx_offset", Accept: intKind},
		{Key: prefix + "tx_offset", Accept: intKind},
		{Key: prefix + "rx_gain", Accept: intKind},
		{Key: prefix + "tx_gain", Accept: intKind},
		{Key: prefix + "enable", Accept: boolKind},
	}
}

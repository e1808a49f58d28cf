// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrf

import (
	"github.com/vrflottery/raffle/pkg/util/abiutil"
)

// CoordinatorABIv2 is the interface of the VRFCoordinatorV2Mock contract.
const CoordinatorABIv2 = `[
	{"type":"constructor","inputs":[{"name":"_baseFee","type":"uint96"},{"name":"_gasPriceLink","type":"uint96"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"BASE_FEE","inputs":[],"outputs":[{"name":"","type":"uint96"}],"stateMutability":"view"},
	{"type":"function","name":"GAS_PRICE_LINK","inputs":[],"outputs":[{"name":"","type":"uint96"}],"stateMutability":"view"},
	{"type":"function","name":"MAX_CONSUMERS","inputs":[],"outputs":[{"name":"","type":"uint16"}],"stateMutability":"view"},
	{"type":"function","name":"createSubscription","inputs":[],"outputs":[{"name":"_subId","type":"uint64"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"fundSubscription","inputs":[{"name":"_subId","type":"uint64"},{"name":"_amount","type":"uint96"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"addConsumer","inputs":[{"name":"_subId","type":"uint64"},{"name":"_consumer","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"removeConsumer","inputs":[{"name":"_subId","type":"uint64"},{"name":"_consumer","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"cancelSubscription","inputs":[{"name":"_subId","type":"uint64"},{"name":"_to","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"consumerIsAdded","inputs":[{"name":"_subId","type":"uint64"},{"name":"_consumer","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"getSubscription","inputs":[{"name":"_subId","type":"uint64"}],"outputs":[{"name":"balance","type":"uint96"},{"name":"reqCount","type":"uint64"},{"name":"owner","type":"address"},{"name":"consumers","type":"address[]"}],"stateMutability":"view"},
	{"type":"function","name":"requestRandomWords","inputs":[{"name":"_keyHash","type":"bytes32"},{"name":"_subId","type":"uint64"},{"name":"_minimumRequestConfirmations","type":"uint16"},{"name":"_callbackGasLimit","type":"uint32"},{"name":"_numWords","type":"uint32"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"fulfillRandomWords","inputs":[{"name":"_requestId","type":"uint256"},{"name":"_consumer","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"fulfillRandomWordsWithOverride","inputs":[{"name":"_requestId","type":"uint256"},{"name":"_consumer","type":"address"},{"name":"_words","type":"uint256[]"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"SubscriptionCreated","anonymous":false,"inputs":[{"name":"subId","type":"uint64","indexed":true},{"name":"owner","type":"address","indexed":false}]},
	{"type":"event","name":"SubscriptionFunded","anonymous":false,"inputs":[{"name":"subId","type":"uint64","indexed":true},{"name":"oldBalance","type":"uint256","indexed":false},{"name":"newBalance","type":"uint256","indexed":false}]},
	{"type":"event","name":"SubscriptionCanceled","anonymous":false,"inputs":[{"name":"subId","type":"uint64","indexed":true},{"name":"to","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"ConsumerAdded","anonymous":false,"inputs":[{"name":"subId","type":"uint64","indexed":true},{"name":"consumer","type":"address","indexed":false}]},
	{"type":"event","name":"ConsumerRemoved","anonymous":false,"inputs":[{"name":"subId","type":"uint64","indexed":true},{"name":"consumer","type":"address","indexed":false}]},
	{"type":"event","name":"RandomWordsRequested","anonymous":false,"inputs":[{"name":"keyHash","type":"bytes32","indexed":true},{"name":"requestId","type":"uint256","indexed":false},{"name":"preSeed","type":"uint256","indexed":false},{"name":"subId","type":"uint64","indexed":true},{"name":"minimumRequestConfirmations","type":"uint16","indexed":false},{"name":"callbackGasLimit","type":"uint32","indexed":false},{"name":"numWords","type":"uint32","indexed":false},{"name":"sender","type":"address","indexed":true}]},
	{"type":"event","name":"RandomWordsFulfilled","anonymous":false,"inputs":[{"name":"requestId","type":"uint256","indexed":true},{"name":"outputSeed","type":"uint256","indexed":false},{"name":"payment","type":"uint96","indexed":false},{"name":"success","type":"bool","indexed":false}]},
	{"type":"error","name":"InvalidSubscription","inputs":[]},
	{"type":"error","name":"InsufficientBalance","inputs":[]},
	{"type":"error","name":"MustBeSubOwner","inputs":[{"name":"owner","type":"address"}]},
	{"type":"error","name":"TooManyConsumers","inputs":[]},
	{"type":"error","name":"InvalidConsumer","inputs":[]},
	{"type":"error","name":"InvalidRandomWords","inputs":[]},
	{"type":"error","name":"NumWordsTooBig","inputs":[{"name":"have","type":"uint32"},{"name":"want","type":"uint32"}]},
	{"type":"error","name":"OnlyCoordinatorCanFulfill","inputs":[{"name":"have","type":"address"},{"name":"want","type":"address"}]}
]`

var coordinatorABI = abiutil.MustParseABI(CoordinatorABIv2)

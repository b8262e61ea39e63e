package config

import "errors"

const DefaultHomeDirName = ".bounty-server"

// Topics for domain events published to the message queue.
var (
	TopicBountyCreated  = "artfundry/bounties/created"
	TopicBountyFunded   = "artfundry/bounties/funded"
	TopicBountyDeleted  = "artfundry/bounties/deleted"
	TopicBountyRefunded = "artfundry/bounties/refunded"
)

var ErrHomeNotSet = errors.New("bounty home directory is not set")

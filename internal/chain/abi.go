package chain

// BridgeABIJSON is the unified ZKRollupBridge ABI this submitter
// targets: a single commitBatch entrypoint taking a DA discriminator
// plus a Groth16Proof tuple, and a stateRoot view for reading the
// bridge's current committed root. The original contracts.rs abigen
// block still declares two separate commitBatchCalldata/commitBatchBlob
// functions, but the infrastructure code that actually calls the chain
// already targets a single bridge.commit_batch(da_id, ...) method —
// this ABI reflects that, per spec.
const BridgeABIJSON = `[
	{
		"type": "function",
		"name": "commitBatch",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "daId", "type": "uint8"},
			{"name": "batchData", "type": "bytes"},
			{"name": "daMeta", "type": "bytes"},
			{"name": "newRoot", "type": "bytes32"},
			{
				"name": "proof",
				"type": "tuple",
				"components": [
					{"name": "a", "type": "uint256[2]"},
					{"name": "b", "type": "uint256[2][2]"},
					{"name": "c", "type": "uint256[2]"}
				]
			}
		],
		"outputs": []
	},
	{
		"type": "function",
		"name": "stateRoot",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "bytes32"}]
	}
]`

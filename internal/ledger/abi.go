package ledger

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const swapABIJSON = `[
  {
    "inputs": [],
    "name": "totalListings",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "activeItems",
    "outputs": [
      {
        "components": [
          {"internalType": "uint256", "name": "swapId", "type": "uint256"},
          {"internalType": "address", "name": "initiator", "type": "address"},
          {
            "components": [
              {"internalType": "address", "name": "nftAddress", "type": "address"},
              {"internalType": "uint256", "name": "nftId", "type": "uint256"},
              {"internalType": "uint256", "name": "nftAmount", "type": "uint256"}
            ],
            "internalType": "struct SwapNFT.NftEntry",
            "name": "swapOffer",
            "type": "tuple"
          },
          {"internalType": "address[]", "name": "proposals", "type": "address[]"},
          {"internalType": "address", "name": "secondUser", "type": "address"},
          {"internalType": "uint256", "name": "deadline", "type": "uint256"}
        ],
        "internalType": "struct SwapNFT.Swap[]",
        "name": "",
        "type": "tuple[]"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "nftAddress", "type": "address"},
          {"internalType": "uint256", "name": "nftId", "type": "uint256"},
          {"internalType": "uint256", "name": "nftAmount", "type": "uint256"}
        ],
        "internalType": "struct SwapNFT.NftEntry",
        "name": "offerNFT",
        "type": "tuple"
      },
      {
        "components": [
          {"internalType": "address", "name": "nftAddress", "type": "address"},
          {"internalType": "uint256", "name": "nftId", "type": "uint256"},
          {"internalType": "uint256", "name": "nftAmount", "type": "uint256"}
        ],
        "internalType": "struct SwapNFT.NftEntry[][]",
        "name": "requestNFTs",
        "type": "tuple[][]"
      },
      {"internalType": "address", "name": "secondUser", "type": "address"},
      {"internalType": "uint256", "name": "deadline", "type": "uint256"}
    ],
    "name": "proposeSwap",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "swapId", "type": "uint256"},
      {
        "components": [
          {"internalType": "address", "name": "nftAddress", "type": "address"},
          {"internalType": "uint256", "name": "nftId", "type": "uint256"},
          {"internalType": "uint256", "name": "nftAmount", "type": "uint256"}
        ],
        "internalType": "struct SwapNFT.NftEntry[]",
        "name": "proposal",
        "type": "tuple[]"
      },
      {"internalType": "uint256", "name": "index", "type": "uint256"}
    ],
    "name": "acceptSwap",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "swapId", "type": "uint256"}],
    "name": "cancelSwap",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const erc721ABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "tokenURI",
    "outputs": [{"internalType": "string", "name": "", "type": "string"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "getApproved",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "approve",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const erc1155ABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "uri",
    "outputs": [{"internalType": "string", "name": "", "type": "string"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "account", "type": "address"},
      {"internalType": "address", "name": "operator", "type": "address"}
    ],
    "name": "isApprovedForAll",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "operator", "type": "address"},
      {"internalType": "bool", "name": "approved", "type": "bool"}
    ],
    "name": "setApprovalForAll",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	swapABI     abi.ABI
	swapABIOnce sync.Once
	swapABIErr  error

	erc721ABI     abi.ABI
	erc721ABIOnce sync.Once
	erc721ABIErr  error

	erc1155ABI     abi.ABI
	erc1155ABIOnce sync.Once
	erc1155ABIErr  error
)

// SwapABI returns the parsed swap contract ABI.
func SwapABI() (abi.ABI, error) {
	swapABIOnce.Do(func() {
		swapABI, swapABIErr = abi.JSON(strings.NewReader(swapABIJSON))
	})
	return swapABI, swapABIErr
}

// ERC721ABI returns the parsed ERC721 ABI subset.
func ERC721ABI() (abi.ABI, error) {
	erc721ABIOnce.Do(func() {
		erc721ABI, erc721ABIErr = abi.JSON(strings.NewReader(erc721ABIJSON))
	})
	return erc721ABI, erc721ABIErr
}

// ERC1155ABI returns the parsed ERC1155 ABI subset.
func ERC1155ABI() (abi.ABI, error) {
	erc1155ABIOnce.Do(func() {
		erc1155ABI, erc1155ABIErr = abi.JSON(strings.NewReader(erc1155ABIJSON))
	})
	return erc1155ABI, erc1155ABIErr
}

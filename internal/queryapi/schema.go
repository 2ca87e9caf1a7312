package queryapi

// schemaString is the hand-written GraphQL schema bound to Resolver by
// graph-gophers/graphql-go, the codegen-free engine ethereum/go-ethereum's
// own graphql package is built on — chosen specifically because this
// project never runs the Go toolchain, so a codegen-based engine (gqlgen)
// is not viable here (DESIGN.md).
const schemaString = `
	schema {
		query: Query
		mutation: Mutation
	}

	type Query {
		health: String!
		rows: [Row!]!
		row(id: ID!): Row
		messages: [Envelope!]!
		message(id: ID!): Envelope
		activeSenders(filter: [String!], minutesAgo: Int): [String!]!
		senderStats(filter: [String!], minutesAgo: Int): [SenderStat!]!
		aggregateSummary(days: Int!): AggregateSummary!
	}

	type Mutation {
		deleteMessage(id: ID!): Envelope
		deleteMessages: [Envelope!]!
	}

	type Row {
		id: ID!
		message: String!
	}

	type Envelope {
		id: ID!
		nonce: String!
		identifier: String!
		graphAccount: String!
		kind: String!
		payload: String!
	}

	type SenderStat {
		graphAccount: String!
		messageCount: Int!
		subgraphsCount: Int!
	}

	type SenderCount {
		graphAccount: String!
		count: Int!
	}

	type AggregateSummary {
		totalMessageCount: [SenderCount!]!
		averageSubgraphsCount: [SenderCount!]!
		totalSubgraphsCovered: Int!
	}
`

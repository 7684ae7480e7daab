package api

// monday.com へ送るGraphQLドキュメント
// 値はすべて変数で渡し、文字列連結でクエリを組み立てない

const meQuery = `query { me { id name email } }`

const workspacesQuery = `query { workspaces(limit: 100) { id name } }`

const boardsQuery = `query ($limit: Int) {
  boards(limit: $limit) { id name }
}`

const groupsQuery = `query ($boardIds: [ID!]) {
  boards(ids: $boardIds) { groups { id title } }
}`

const columnsQuery = `query ($boardIds: [ID!]) {
  boards(ids: $boardIds) { columns { id title type } }
}`

const boardItemsPageQuery = `query ($boardIds: [ID!], $limit: Int!, $cursor: String, $columnIds: [String!]) {
  boards(ids: $boardIds) {
    items_page(limit: $limit, cursor: $cursor) {
      cursor
      items {
        id
        created_at
        group { id title }
        column_values(ids: $columnIds) { id text }
      }
    }
  }
}`

const groupItemsPageQuery = `query ($boardIds: [ID!], $groupIds: [String], $limit: Int!, $cursor: String, $columnIds: [String!]) {
  boards(ids: $boardIds) {
    groups(ids: $groupIds) {
      items_page(limit: $limit, cursor: $cursor) {
        cursor
        items {
          id
          created_at
          group { id title }
          column_values(ids: $columnIds) { id text }
        }
      }
    }
  }
}`

const itemAssetsQuery = `query ($itemIds: [ID!]) {
  items(ids: $itemIds) {
    id
    updates(limit: 100) {
      id
      assets { id name public_url file_extension }
    }
  }
}`

const changeSimpleColumnValueMutation = `mutation ($boardId: ID!, $itemId: ID, $columnId: String!, $value: String) {
  change_simple_column_value(board_id: $boardId, item_id: $itemId, column_id: $columnId, value: $value) { id }
}`

package pgx

const insertSuspectSQL = `INSERT INTO suspects (name) VALUES ($1) RETURNING id`

const insertCaseSQL = `INSERT INTO cases (case_number) VALUES ($1) RETURNING id`

const insertCaseSuspectSQL = `
INSERT INTO case_suspects (case_id, suspect_id, suspect_case_id)
VALUES ($1, $2, $3)
ON CONFLICT (suspect_case_id) DO NOTHING`

const findCaseSuspectSQL = `
SELECT id, case_id, suspect_id, suspect_case_id
FROM case_suspects
WHERE suspect_case_id = $1
ORDER BY id
LIMIT 1`

const insertAccountSQL = `
INSERT INTO accounts (account_name, account_label, account_type_id, suspect_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (account_name) DO NOTHING`

const selectAccountsByNameSQL = `
SELECT id, account_name, account_label, account_type_id, suspect_id
FROM accounts
WHERE account_name = ANY($1)`

const selectEdgeTypesSQL = `SELECT id, name FROM edge_types`

const insertEdgeSQL = `
INSERT INTO edges (source_suspect_id, source_account_id, target_account_id, edge_type_id, edge_direction, edge_combo_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (edge_combo_id) DO NOTHING`

const selectSuspectsSQL = `
SELECT id, name, first_degree_links, second_degree_links, first_degree_case_links, second_degree_case_links
FROM suspects
ORDER BY id`

const selectSuspectSQL = `
SELECT id, name, first_degree_links, second_degree_links, first_degree_case_links, second_degree_case_links
FROM suspects
WHERE id = $1`

const selectAccountsSQL = `
SELECT id, account_name, account_label, account_type_id, suspect_id
FROM accounts
ORDER BY id`

const selectEdgesSQL = `
SELECT id, source_suspect_id, source_account_id, target_account_id, edge_type_id, edge_direction, edge_combo_id
FROM edges
ORDER BY id`

const selectCasesSQL = `SELECT id, case_number FROM cases ORDER BY id`

const selectCaseSuspectsSQL = `
SELECT id, case_id, suspect_id, suspect_case_id
FROM case_suspects
ORDER BY id`

const updateLinkStatsSQL = `
UPDATE suspects
SET first_degree_links = $2,
    second_degree_links = $3,
    first_degree_case_links = $4,
    second_degree_case_links = $5
WHERE id = $1`

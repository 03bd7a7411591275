package sqlite3

const CreateCryptoObjectTable = `
    CREATE TABLE IF NOT EXISTS crypto_object (
        token_label		TEXT NOT NULL,
        handle			INTEGER NOT NULL,
        unique_id		TEXT NOT NULL,
        kind			INTEGER NOT NULL,
        PRIMARY KEY (token_label, handle)
    )`

const CreateAttributeTable = `
    CREATE TABLE IF NOT EXISTS attribute (
        token_label				TEXT NOT NULL,
        crypto_object_handle	INTEGER NOT NULL,
        position				INTEGER NOT NULL,
        type					INTEGER NOT NULL,
        value					BLOB,
        PRIMARY KEY (token_label, crypto_object_handle, type)
    )`

const InsertCryptoObjectQuery = `
	INSERT OR REPLACE INTO crypto_object (token_label, handle, unique_id, kind)
	VALUES (?, ?, ?, ?)
`

const InsertAttributeQuery = `
	INSERT INTO attribute (token_label, crypto_object_handle, position, type, value)
	VALUES (?, ?, ?, ?, ?)
`

const CleanAttributesQuery = `
	DELETE FROM attribute WHERE token_label = ? AND crypto_object_handle = ?
`

const DeleteCryptoObjectQuery = `
	DELETE FROM crypto_object WHERE token_label = ? AND handle = ?
`

const GetCryptoObjectAttrsQuery = `
        SELECT co.handle, co.unique_id, co.kind, att.type, att.value
		FROM crypto_object as co
        LEFT JOIN attribute as att
		ON att.token_label = co.token_label
		AND att.crypto_object_handle = co.handle
        WHERE co.token_label = ?
        ORDER BY co.handle, att.position
`

const GetMaxHandleQuery = `
	SELECT COALESCE(MAX(handle), 0) FROM crypto_object WHERE token_label = ?
`

var CreateStmts = []string{CreateCryptoObjectTable, CreateAttributeTable}

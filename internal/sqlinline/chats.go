package sqlinline

const QInsertChat = `--sql 3f1c2b7a-8d42-4e6b-9a1f-5c3d7e9b0a21
insert into chats (user_id, type, history)
values ($1, $2, $3::jsonb)
returning id, created_at;
`

const QSelectChat = `--sql 7a9e4d1c-2b5f-4c8a-b3e6-1f0d9c8b7a65
select id, user_id, type, history, created_at
from chats
where id = $1::uuid and user_id = $2;
`

// Appending through a single UPDATE keeps concurrent appenders serialized by
// row-level locking; the ledger never does read-modify-write on history.
const QAppendTurns = `--sql c4d8e2f6-1a3b-4c5d-8e7f-9b0a1c2d3e4f
update chats
set history = history || $3::jsonb
where id = $1::uuid and user_id = $2;
`

package sqlinline

const QSelectCredential = `--sql 8c1e5a7b-3d9f-4e2c-a6b8-0f4d2c6e8a93
select secret from app_credentials where name = $1;
`

const QUpsertCredential = `--sql 6f3d8b2e-5a1c-4d9e-b7f0-2c8a4e6d0b35
insert into app_credentials (name, secret)
values ($1, $2)
on conflict (name) do update set secret = excluded.secret;
`
